package flow

import (
	"fmt"
	"net/url"
	"strings"
)

// Position is an immutable, interned root-to-leaf path through the flow
// tree. Every element except the last is a *Branch; the last is a *Leaf.
// Positions are created once per distinct path during Registry.Bind and
// cached for the life of the process.
type Position struct {
	reg   *Registry
	path  []Definition
	name  string
	route string
}

// canonicalName derives the stable name for a definition sequence: the
// per-definition names joined by "/". Names are unique within a registry and
// may not contain the separator (enforced at construction), so identical
// sequences always yield the identical name and distinct sequences never
// collide.
func canonicalName(path []Definition) string {
	parts := make([]string, len(path))
	for i, d := range path {
		parts[i] = d.Name()
	}
	return strings.Join(parts, "/")
}

func newPosition(reg *Registry, path []Definition, name string) *Position {
	segments := make([]string, len(path))
	for i, d := range path {
		segments[i] = d.Route()
	}
	return &Position{
		reg:   reg,
		path:  append([]Definition{}, path...),
		name:  name,
		route: "/" + strings.Join(segments, "/"),
	}
}

// Name returns the canonical name of this position. It doubles as the route
// key under which the transport layer exposes the position.
func (p *Position) Name() string { return p.name }

// Path returns the definition sequence from root to leaf.
func (p *Position) Path() []Definition {
	out := make([]Definition, len(p.path))
	copy(out, p.path)
	return out
}

// Leaf returns the terminal definition.
func (p *Position) Leaf() *Leaf {
	return p.path[len(p.path)-1].(*Leaf)
}

// Root returns the entry definition.
func (p *Position) Root() Definition { return p.path[0] }

// Depth returns the number of definitions on the path.
func (p *Position) Depth() int { return len(p.path) }

// RoutePattern returns the routable path for this position, including the
// registry base path. Segments may carry {param} placeholders.
func (p *Position) RoutePattern() string {
	return strings.TrimSuffix(p.reg.basePath, "/") + p.route
}

// NewInstance binds the position to one session's state, constructing the
// live step objects root to leaf.
func (p *Position) NewInstance(st *State) *Instance {
	steps := make([]any, len(p.path))
	for i, d := range p.path {
		steps[i] = d.newStep()
	}
	return &Instance{pos: p, state: st, steps: steps}
}

// url builds the absolute URL for this position from the given parameter
// values, appending the session identifier as a query parameter.
func (p *Position) url(params map[string]string, sessionID string) (string, error) {
	segments := strings.Split(p.RoutePattern(), "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			continue
		}
		key := seg[1 : len(seg)-1]
		val, ok := params[key]
		if !ok {
			return "", fmt.Errorf("position %q: no value for URL parameter %q", p.name, key)
		}
		segments[i] = url.PathEscape(val)
	}
	return strings.Join(segments, "/") + "?" + p.reg.sessionParam + "=" + url.QueryEscape(sessionID), nil
}

func (p *Position) String() string { return p.name }
