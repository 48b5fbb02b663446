package flow

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrMalformedSessionID is returned when an inbound session identifier fails
// the format check. Malformed identifiers are rejected before any store lookup.
var ErrMalformedSessionID = errors.New("malformed session identifier")

// UnknownComponentError indicates a name that does not resolve to a registered
// step definition. Always a configuration fault, never recovered silently.
type UnknownComponentError struct {
	Name string
}

func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("no such flow component: %q", e.Name)
}

// UnknownPositionError indicates a root-to-leaf path that was never interned,
// i.e. it is not reachable through the static tree.
type UnknownPositionError struct {
	Name string
}

func (e *UnknownPositionError) Error() string {
	return fmt.Sprintf("no such flow position: %q", e.Name)
}

// NoCommonAncestorError indicates a redirection target that is not exposed as
// a child of any ancestor of the current leaf. This is an authoring bug in
// step transition logic.
type NoCommonAncestorError struct {
	From   string
	Target string
}

func (e *NoCommonAncestorError) Error() string {
	return fmt.Sprintf("cannot redirect from %q to %q: target is not a child of any ancestor", e.From, e.Target)
}

// MissingTransitionError indicates that a leaf reported completion without an
// explicit destination and the enclosing branch carries no transition policy.
type MissingTransitionError struct {
	Branch   string
	Position string
}

func (e *MissingTransitionError) Error() string {
	return fmt.Sprintf("step at %q completed without a destination and branch %q has no transition policy", e.Position, e.Branch)
}

// MissingCompletionError indicates whole-flow completion with no on-complete
// URL recorded in the session state.
type MissingCompletionError struct {
	Position string
}

func (e *MissingCompletionError) Error() string {
	return fmt.Sprintf("flow completed at %q without an on-complete URL or an explicit redirect", e.Position)
}
