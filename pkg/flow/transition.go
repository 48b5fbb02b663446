package flow

import "fmt"

// Transition is the pluggable policy a branch uses to compute the next
// position when a contained leaf completes without naming an explicit
// destination. branch is the index of the resolving branch on the instance's
// path. Returning a nil Position propagates completion upward, to the
// enclosing branch or to whole-flow completion. Implementations must be
// deterministic for a given state snapshot.
type Transition interface {
	Next(in *Instance, branch int) (*Position, error)
}

// TransitionFunc adapts a plain function to the Transition interface.
type TransitionFunc func(in *Instance, branch int) (*Position, error)

func (f TransitionFunc) Next(in *Instance, branch int) (*Position, error) {
	return f(in, branch)
}

// NextSibling advances to the next child of the resolving branch, in
// declared order. Completing the last child propagates completion upward.
func NextSibling() Transition {
	return TransitionFunc(func(in *Instance, branch int) (*Position, error) {
		path := in.pos.path
		b := path[branch].(*Branch)
		idx := b.childIndex(path[branch+1])
		if idx < 0 {
			return nil, fmt.Errorf("branch %q does not contain %q", b.Name(), path[branch+1].Name())
		}
		if idx+1 >= len(b.Children()) {
			return nil, nil
		}
		next := b.Children()[idx+1]
		newPath := append(append([]Definition{}, path[:branch+1]...), next.initialPath()...)
		return in.pos.reg.positionForPath(newPath)
	})
}

// To always advances to a fixed target, resolved against the current
// position via the sibling-redirection rules.
func To(target Ref) Transition {
	return TransitionFunc(func(in *Instance, branch int) (*Position, error) {
		return in.positionFor(target)
	})
}

// FromStateKey reads the target step name from the session state, supporting
// flows where an earlier step records the user's choice.
func FromStateKey(key string) Transition {
	return TransitionFunc(func(in *Instance, branch int) (*Position, error) {
		name := in.state.GetString(key)
		if name == "" {
			return nil, fmt.Errorf("state key %q holds no step name", key)
		}
		return in.positionFor(name)
	})
}
