package flow

// Instance is a Position bound to one session's persisted state, with live
// step objects for each definition on the path. Instances are constructed
// per request and discarded afterwards; everything that must survive the
// request goes through the state store.
type Instance struct {
	pos   *Position
	state *State
	steps []any
}

// Position returns the position this instance is bound to.
func (in *Instance) Position() *Position { return in.pos }

// State returns the shared session state.
func (in *Instance) State() *State { return in.state }

// Steps returns the live step objects, root to leaf. Entries are nil for
// definitions that declare no behaviour.
func (in *Instance) Steps() []any {
	out := make([]any, len(in.steps))
	copy(out, in.steps)
	return out
}

// positionFor runs the sibling-redirection algorithm: scanning the current
// path's ancestors from the leaf's parent down to the root, it finds the
// closest branch whose children contain the target. The new path is the
// ancestors up to that branch plus the target's initial path. A leaf may
// only redirect to something reachable as a child of one of its own
// ancestors, never to an arbitrary unrelated position.
func (in *Instance) positionFor(target Ref) (*Position, error) {
	t, err := in.pos.reg.Resolve(target)
	if err != nil {
		return nil, err
	}

	path := in.pos.path
	for k := len(path) - 2; k >= 0; k-- {
		b, ok := path[k].(*Branch)
		if !ok {
			continue
		}
		if !b.hasChild(t) {
			continue
		}
		newPath := append(append([]Definition{}, path[:k+1]...), t.initialPath()...)
		return in.pos.reg.positionForPath(newPath)
	}
	return nil, &NoCommonAncestorError{From: in.pos.Name(), Target: t.Name()}
}

// PositionFor resolves a redirection target into a fresh instance bound to
// the same session state; the state carries over across the jump.
func (in *Instance) PositionFor(target Ref) (*Instance, error) {
	p, err := in.positionFor(target)
	if err != nil {
		return nil, err
	}
	return p.NewInstance(in.state), nil
}

// urlParams merges every step's URL parameter contributions, root to leaf.
func (in *Instance) urlParams() map[string]string {
	params := make(map[string]string)
	for _, step := range in.steps {
		if p, ok := step.(URLParamProvider); ok {
			for k, v := range p.URLParams(in.state) {
				params[k] = v
			}
		}
	}
	return params
}

// AbsoluteURL builds the routable URL for this instance, carrying the
// session identifier as a query parameter.
func (in *Instance) AbsoluteURL() (string, error) {
	return in.pos.url(in.urlParams(), in.state.ID)
}

func (in *Instance) String() string {
	return "instance of " + in.pos.Name()
}
