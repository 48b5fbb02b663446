// Package flow implements the core flow-tree engine: step definitions
// (branches and leaves), interned root-to-leaf positions, per-session
// position instances, the request life cycle, backward-navigation history,
// and automatic transition resolution.
//
// A flow is a static tree of definitions declared at startup and bound once
// via Registry.Bind. Every reachable root-to-leaf path becomes an addressable
// Position; binding a Position to one session's persisted State yields an
// Instance, which drives a single request through the
// preconditions/prepare/dispatch/resolve life cycle.
package flow
