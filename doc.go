// Package espalier drives multi-step, stateful interaction sequences
// ("flows") over HTTP. A flow is a static tree of branches and leaves; the
// engine turns every root-to-leaf path into an addressable, resumable
// position, persists per-session state across requests, supports backward
// navigation, and resolves "what comes next" automatically when a step
// completes without naming a destination.
//
// The root package is a thin facade wiring the pieces together; the flow
// engine itself lives in pkg/flow, persistence contracts in pkg/ports, and
// the HTTP dispatcher in pkg/adapters/http.
package espalier
