// Package ports defines the interfaces between the flow engine and its
// external collaborators: session state persistence and distributed
// concurrency control. Adapters implement these; the engine depends only on
// the contracts.
package ports
