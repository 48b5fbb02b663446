// Package session manages per-session state access: identifier generation
// and validation, and a Manager that serializes all mutations of one session
// behind an in-process lock, optionally coordinated across replicas through
// a distributed locker.
package session
