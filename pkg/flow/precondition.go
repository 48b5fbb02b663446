package flow

import "net/http"

// Precondition gates execution of a step. Process returns nil to proceed;
// any other outcome short-circuits the whole request, e.g. an early redirect
// to a login page. Preconditions run in declared order, root to leaf, before
// anything else in the life cycle.
type Precondition interface {
	Process(in *Instance, r *http.Request) (Outcome, error)
}

// PreconditionFunc adapts a plain function to the Precondition interface.
type PreconditionFunc func(in *Instance, r *http.Request) (Outcome, error)

func (f PreconditionFunc) Process(in *Instance, r *http.Request) (Outcome, error) {
	return f(in, r)
}

// RequireValue redirects to url when the session state holds nothing under
// key. The usual "must have logged in first" guard.
func RequireValue(key, url string) Precondition {
	return PreconditionFunc(func(in *Instance, r *http.Request) (Outcome, error) {
		if _, ok := in.State().Get(key); !ok {
			return Redirect{URL: url}, nil
		}
		return nil, nil
	})
}

// RequireStep redirects to another step in the flow when the session state
// holds nothing under key, keeping the user inside the current flow.
func RequireStep(key string, target Ref) Precondition {
	return PreconditionFunc(func(in *Instance, r *http.Request) (Outcome, error) {
		if _, ok := in.State().Get(key); !ok {
			return Goto{Target: target}, nil
		}
		return nil, nil
	})
}
