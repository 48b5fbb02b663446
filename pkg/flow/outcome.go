package flow

import (
	"fmt"
	"net/http"
)

// Outcome is the tagged result a step produces while handling a request.
// The life-cycle resolver matches on the concrete variant instead of doing
// runtime type inspection of arbitrary handler returns.
//
// A nil Outcome from Prepare or a precondition means "proceed".
type Outcome interface {
	isOutcome()
}

// Completed is the completion sentinel: the step (or branch) is done and
// absolves responsibility for choosing what comes next. The enclosing
// branch's transition policy, or the whole-flow on-complete URL, decides.
type Completed struct{}

func (Completed) isOutcome() {}

// Goto routes the user to another step definition, resolved against the
// current position via the sibling-redirection algorithm.
type Goto struct {
	Target Ref
}

func (Goto) isOutcome() {}

// Enter routes the user to an already-constructed position instance.
type Enter struct {
	Instance *Instance
}

func (Enter) isOutcome() {}

// Redirect is a transport-level redirect to an arbitrary URL.
type Redirect struct {
	URL string
}

func (Redirect) isOutcome() {}

// Respond renders a transport-level response as-is. A GET request whose leaf
// produced a Respond is recorded in the navigation history.
type Respond struct {
	Handler http.Handler
}

func (Respond) isOutcome() {}

// RespondText is a convenience Respond writing a plain-text body.
func RespondText(format string, args ...any) Respond {
	body := fmt.Sprintf(format, args...)
	return Respond{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, body)
	})}
}

// RespondHTML is a convenience Respond writing an HTML body.
func RespondHTML(body string) Respond {
	return Respond{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	})}
}
