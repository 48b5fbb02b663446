package flow

import (
	"context"
	"fmt"
	"net/http"
)

// Saver is the slice of the state store the life cycle needs: the final
// write-back or terminal cleanup of the session state.
type Saver interface {
	Save(ctx context.Context, sessionID string, st *State) error
	Delete(ctx context.Context, sessionID string) error
}

// Handle drives one request through the life cycle:
//
//	PRECONDITIONS -> PREPARING -> DISPATCHING -> RESOLVING -> {REDIRECTED, COMPLETED}
//
// Preconditions run root to leaf; the first non-nil outcome short-circuits
// the whole request. Prepare runs root to leaf; the first non-nil outcome
// skips the leaf dispatch. The leaf's own handler runs next, and a GET that
// rendered a response is recorded in the history. Finally the outcome is
// folded leaf to root through the resolving phase and acted upon; the state
// write (or delete, on whole-flow completion) happens strictly after
// resolving.
func (in *Instance) Handle(w http.ResponseWriter, r *http.Request, store Saver) error {
	// PRECONDITIONS
	for _, def := range in.pos.path {
		for _, pc := range def.Preconditions() {
			out, err := pc.Process(in, r)
			if err != nil {
				return fmt.Errorf("precondition for %q failed: %w", def.Name(), err)
			}
			if out != nil {
				return in.finish(w, r, out, store)
			}
		}
	}

	// PREPARING
	var out Outcome
	for i, step := range in.steps {
		p, ok := step.(Preparer)
		if !ok {
			continue
		}
		prepared, err := p.Prepare(in, r)
		if err != nil {
			return fmt.Errorf("prepare for %q failed: %w", in.pos.path[i].Name(), err)
		}
		if prepared != nil {
			out = prepared
			break
		}
	}

	// DISPATCHING, unless an ancestor intercepted the request.
	if out == nil {
		var err error
		out, err = in.dispatch(w, r)
		if err != nil {
			return fmt.Errorf("dispatch at %q failed: %w", in.pos.Name(), err)
		}
		// A GET that rendered something was shown to the user; a write or a
		// redirect was not, and is never recorded.
		if _, rendered := out.(Respond); rendered && r.Method == http.MethodGet {
			in.remember()
		}
	}

	// RESOLVING: fold leaf to root, giving every ancestor a chance to
	// reinterpret what its descendants produced.
	for i := len(in.pos.path) - 1; i >= 0; i-- {
		if oh, ok := in.steps[i].(OutcomeHandler); ok {
			resolved, err := oh.HandleOutcome(in, out)
			if err != nil {
				return fmt.Errorf("resolving at %q failed: %w", in.pos.path[i].Name(), err)
			}
			out = resolved
			continue
		}
		if b, ok := in.pos.path[i].(*Branch); ok {
			resolved, err := in.resolveBranch(b, i, out)
			if err != nil {
				return err
			}
			out = resolved
		}
	}

	return in.finish(w, r, out, store)
}

// dispatch invokes the leaf's own request handler. A leaf without one gets
// the default behaviour: a GET renders a minimal page and a POST reports
// completion.
func (in *Instance) dispatch(w http.ResponseWriter, r *http.Request) (Outcome, error) {
	if h, ok := in.steps[len(in.steps)-1].(Handler); ok {
		return h.Handle(in, w, r)
	}
	if r.Method == http.MethodPost {
		return Completed{}, nil
	}
	return RespondText("%s\n", in.pos.Leaf().Name()), nil
}

// resolveBranch is the default resolving behaviour of a branch without a
// custom outcome handler: a completion sentinel is resolved through the
// branch's transition policy, anything else passes through unchanged.
func (in *Instance) resolveBranch(b *Branch, idx int, out Outcome) (Outcome, error) {
	if _, done := out.(Completed); !done {
		return out, nil
	}
	tr := b.Transition()
	if tr == nil {
		return nil, &MissingTransitionError{Branch: b.Name(), Position: in.pos.Name()}
	}
	next, err := tr.Next(in, idx)
	if err != nil {
		return nil, fmt.Errorf("transition on branch %q failed: %w", b.Name(), err)
	}
	if next == nil {
		// The policy has nowhere further to go; completion propagates to the
		// enclosing branch or to whole-flow completion.
		return Completed{}, nil
	}
	return Enter{Instance: next.NewInstance(in.state)}, nil
}

// finish interprets the value leaving the resolving phase. Whole-flow
// completion redirects to the recorded on-complete URL and deletes the
// session state; every other outcome persists the state first and then
// redirects or responds.
func (in *Instance) finish(w http.ResponseWriter, r *http.Request, out Outcome, store Saver) error {
	ctx := r.Context()

	if out == nil {
		return fmt.Errorf("request at %q produced no outcome", in.pos.Name())
	}

	if _, done := out.(Completed); done {
		dest := in.state.OnComplete
		if dest == "" {
			return &MissingCompletionError{Position: in.pos.Name()}
		}
		if err := store.Delete(ctx, in.state.ID); err != nil {
			return fmt.Errorf("failed to clean up completed session %q: %w", in.state.ID, err)
		}
		http.Redirect(w, r, dest, http.StatusFound)
		return nil
	}

	if err := store.Save(ctx, in.state.ID, in.state); err != nil {
		return fmt.Errorf("failed to persist session %q: %w", in.state.ID, err)
	}

	switch v := out.(type) {
	case Goto:
		next, err := in.PositionFor(v.Target)
		if err != nil {
			return err
		}
		url, err := next.AbsoluteURL()
		if err != nil {
			return err
		}
		http.Redirect(w, r, url, http.StatusFound)
	case Enter:
		url, err := v.Instance.AbsoluteURL()
		if err != nil {
			return err
		}
		http.Redirect(w, r, url, http.StatusFound)
	case Redirect:
		http.Redirect(w, r, v.URL, http.StatusFound)
	case Respond:
		v.Handler.ServeHTTP(w, r)
	default:
		return fmt.Errorf("request at %q produced an unsupported outcome %T", in.pos.Name(), out)
	}
	return nil
}
