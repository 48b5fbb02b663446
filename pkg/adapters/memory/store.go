// Package memory provides an in-memory state store, suitable for tests and
// single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/espalier/pkg/flow"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*flow.State
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*flow.State),
	}
}

// Save persists the state in memory. The state is copied on write so later
// mutation by the caller does not leak into the store, mirroring what
// serializing stores do.
func (s *Store) Save(ctx context.Context, sessionID string, st *flow.State) error {
	copied := st.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copied
	return nil
}

// Load retrieves the state from memory, copied on read so the caller cannot
// mutate stored state through the returned pointer.
func (s *Store) Load(ctx context.Context, sessionID string) (*flow.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data[sessionID]
	if !ok {
		return nil, flow.ErrSessionNotFound
	}
	return st.Clone(), nil
}

// Delete removes the state.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns active sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}
