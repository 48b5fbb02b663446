package flow

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// State is the per-session persisted blob. The engine owns the reserved ID
// and OnComplete fields plus the navigation history; everything under Values
// is step-defined.
type State struct {
	// ID is the session identifier, set at creation and never mutated.
	ID string `json:"_id"`

	// OnComplete is the destination URL consulted at whole-flow completion.
	// It is set by the surrounding application, typically when the flow is
	// first entered.
	OnComplete string `json:"_on_complete,omitempty"`

	// Values holds step-defined session data.
	Values map[string]any `json:"values"`

	// History records visited positions for back navigation.
	History []HistoryEntry `json:"history,omitempty"`
}

// HistoryEntry is one visited position: its canonical name plus the URL
// parameter snapshot needed to reconstruct the instance's URL.
type HistoryEntry struct {
	Position string            `json:"position"`
	Params   map[string]string `json:"params,omitempty"`
}

// NewState creates an empty session state for the given identifier.
func NewState(id string) *State {
	return &State{
		ID:     id,
		Values: make(map[string]any),
	}
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// Set stores a value under key.
func (s *State) Set(key string, v any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = v
}

// Unset removes a value.
func (s *State) Unset(key string) {
	delete(s.Values, key)
}

// GetString returns the string stored under key, or "" if absent or not a
// string.
func (s *State) GetString(key string) string {
	v, _ := s.Values[key].(string)
	return v
}

// Decode decodes the value stored under key into out. Stores round-trip state
// through JSON, which degrades typed values to map[string]any; Decode
// reconstructs a typed struct from such a map.
func (s *State) Decode(key string, out any) error {
	v, ok := s.Values[key]
	if !ok {
		return fmt.Errorf("state key %q not set", key)
	}
	if err := mapstructure.Decode(v, out); err != nil {
		return fmt.Errorf("failed to decode state key %q: %w", key, err)
	}
	return nil
}

// Clone returns a copy with its own Values map and History slice. Nested
// reference values are shared.
func (s *State) Clone() *State {
	out := *s
	out.Values = make(map[string]any, len(s.Values))
	for k, v := range s.Values {
		out.Values[k] = v
	}
	out.History = make([]HistoryEntry, len(s.History))
	copy(out.History, s.History)
	return &out
}
