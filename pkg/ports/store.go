package ports

import (
	"context"

	"github.com/aretw0/espalier/pkg/flow"
)

// StateStore persists session state across requests. It is the single point
// of cross-request shared mutable data; each operation is atomic at the
// single-key granularity.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, st *flow.State) error

	// Load retrieves the state for a given session ID.
	// Returns flow.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*flow.State, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the identifiers of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
