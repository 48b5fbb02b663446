package flow

import (
	"fmt"
	"net/http"
	"strings"
)

// Ref identifies a step definition: either its registered name (string) or
// the Definition value itself.
type Ref any

// Definition is a static, authored node in the flow tree. Concrete
// definitions are *Branch (grouping node) and *Leaf (terminal,
// user-interactive node).
type Definition interface {
	// Name is the stable identifier, unique within a registry. It is the
	// per-definition short code joined into canonical position names.
	Name() string

	// Route is the URL segment this definition contributes to a position's
	// route pattern. Defaults to the name; may carry {param} placeholders
	// filled from step URL params.
	Route() string

	// Preconditions are evaluated in order before the request is handled.
	Preconditions() []Precondition

	// SkipOnBack reports whether this step is elided when computing
	// back-navigation targets.
	SkipOnBack() bool

	// initialPath is the path from this definition down to its first leaf.
	// Must only be called after Registry.Bind.
	initialPath() []Definition

	// newStep constructs the live step object for one request, or nil when
	// the definition declares no behaviour of its own.
	newStep() any
}

// Step behaviour is declared through small optional interfaces; a step object
// implements only the phases it participates in.

// Preparer runs in the PREPARING phase, root to leaf. A non-nil Outcome
// short-circuits straight to RESOLVING, skipping the leaf dispatch.
type Preparer interface {
	Prepare(in *Instance, r *http.Request) (Outcome, error)
}

// Handler is the leaf's own request handler, run in the DISPATCHING phase.
type Handler interface {
	Handle(in *Instance, w http.ResponseWriter, r *http.Request) (Outcome, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(in *Instance, w http.ResponseWriter, r *http.Request) (Outcome, error)

func (f HandlerFunc) Handle(in *Instance, w http.ResponseWriter, r *http.Request) (Outcome, error) {
	return f(in, w, r)
}

// OutcomeHandler runs in the RESOLVING phase, leaf to root, and may
// reinterpret or override what a descendant produced. A branch step
// implementing this replaces the branch's default transition resolution.
type OutcomeHandler interface {
	HandleOutcome(in *Instance, out Outcome) (Outcome, error)
}

// URLParamProvider contributes values for {param} placeholders when a
// position's absolute URL is built, e.g. an object id the step owns.
type URLParamProvider interface {
	URLParams(st *State) map[string]string
}

type config struct {
	route      string
	precs      []Precondition
	skipOnBack bool
	factory    func() any
	children   []Ref
	transition Transition
}

// Option configures a Branch or Leaf definition.
type Option func(*config)

// WithRoute overrides the URL segment for this definition. The segment may
// contain chi-style {param} placeholders.
func WithRoute(segment string) Option {
	return func(c *config) {
		c.route = segment
	}
}

// WithPreconditions sets the ordered preconditions gating this definition.
func WithPreconditions(pcs ...Precondition) Option {
	return func(c *config) {
		c.precs = pcs
	}
}

// WithSkipOnBack marks the definition as non-revisitable via back
// navigation, e.g. a login or registration step that mutates global state.
func WithSkipOnBack() Option {
	return func(c *config) {
		c.skipOnBack = true
	}
}

// WithStep sets the factory constructing the live step object per request.
func WithStep(factory func() any) Option {
	return func(c *config) {
		c.factory = factory
	}
}

// WithHandler is shorthand for a leaf step that only needs a request handler.
func WithHandler(h HandlerFunc) Option {
	return func(c *config) {
		c.factory = func() any { return h }
	}
}

// WithChildren declares a branch's ordered children, by name or by value.
// Name references are bound to concrete definitions by Registry.Bind.
func WithChildren(children ...Ref) Option {
	return func(c *config) {
		c.children = children
	}
}

// WithTransition attaches the policy resolving ambiguous completion of this
// branch's descendants.
func WithTransition(t Transition) Option {
	return func(c *config) {
		c.transition = t
	}
}

// Branch is a non-terminal definition grouping child definitions. It glues
// several steps into one piece of congruent functionality, e.g. a
// login-or-register group.
type Branch struct {
	name     string
	cfg      config
	resolved []Definition // set by Registry.Bind
}

// validateName rejects names that would break canonical position naming:
// the "/" separator must never appear inside a segment, or two distinct
// paths could intern to the same position.
func validateName(name string) {
	if name == "" || strings.Contains(name, "/") {
		panic(fmt.Sprintf("flow: invalid definition name %q", name))
	}
}

// NewBranch declares a branch definition.
func NewBranch(name string, opts ...Option) *Branch {
	validateName(name)
	b := &Branch{name: name}
	for _, opt := range opts {
		opt(&b.cfg)
	}
	if len(b.cfg.children) == 0 {
		panic(fmt.Sprintf("flow: branch %q declared without children", name))
	}
	return b
}

func (b *Branch) Name() string { return b.name }

func (b *Branch) Route() string {
	if b.cfg.route != "" {
		return b.cfg.route
	}
	return b.name
}

func (b *Branch) Preconditions() []Precondition { return b.cfg.precs }
func (b *Branch) SkipOnBack() bool              { return b.cfg.skipOnBack }

// Transition returns the branch's transition policy, or nil.
func (b *Branch) Transition() Transition { return b.cfg.transition }

// Children returns the bound child definitions. Empty before Registry.Bind.
func (b *Branch) Children() []Definition { return b.resolved }

func (b *Branch) hasChild(d Definition) bool {
	for _, c := range b.resolved {
		if c.Name() == d.Name() {
			return true
		}
	}
	return false
}

func (b *Branch) childIndex(d Definition) int {
	for i, c := range b.resolved {
		if c.Name() == d.Name() {
			return i
		}
	}
	return -1
}

func (b *Branch) initialPath() []Definition {
	if len(b.resolved) == 0 {
		panic(fmt.Sprintf("flow: branch %q used before Registry.Bind", b.name))
	}
	return append([]Definition{b}, b.resolved[0].initialPath()...)
}

func (b *Branch) newStep() any {
	if b.cfg.factory == nil {
		return nil
	}
	return b.cfg.factory()
}

// Leaf is a terminal, user-interactive definition.
type Leaf struct {
	name string
	cfg  config
}

// NewLeaf declares a leaf definition.
func NewLeaf(name string, opts ...Option) *Leaf {
	validateName(name)
	l := &Leaf{name: name}
	for _, opt := range opts {
		opt(&l.cfg)
	}
	if len(l.cfg.children) != 0 || l.cfg.transition != nil {
		panic(fmt.Sprintf("flow: leaf %q cannot declare children or a transition", name))
	}
	return l
}

func (l *Leaf) Name() string { return l.name }

func (l *Leaf) Route() string {
	if l.cfg.route != "" {
		return l.cfg.route
	}
	return l.name
}

func (l *Leaf) Preconditions() []Precondition { return l.cfg.precs }
func (l *Leaf) SkipOnBack() bool              { return l.cfg.skipOnBack }

func (l *Leaf) initialPath() []Definition { return []Definition{l} }

func (l *Leaf) newStep() any {
	if l.cfg.factory == nil {
		return nil
	}
	return l.cfg.factory()
}
