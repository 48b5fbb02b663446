package flow

import (
	"fmt"
	"sync"
)

const (
	// DefaultSessionParam is the query/form parameter carrying the session
	// identifier.
	DefaultSessionParam = "_id"

	// DefaultBasePath is the path prefix under which positions are routed.
	DefaultBasePath = "/flows"
)

// Registry is the explicit, process-scoped mapping of stable names to step
// definitions plus the interned-position table. It is populated by explicit
// registration at startup, bound once via Bind, and read-only thereafter.
// Tests needing isolation construct a fresh Registry.
type Registry struct {
	basePath     string
	sessionParam string

	mu        sync.RWMutex
	defs      map[string]Definition
	entries   []Definition
	positions map[string]*Position
	ordered   []*Position
	bound     bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithBasePath sets the path prefix for position routes.
func WithBasePath(p string) RegistryOption {
	return func(r *Registry) {
		r.basePath = p
	}
}

// WithSessionParam sets the name of the session identifier parameter.
func WithSessionParam(name string) RegistryOption {
	return func(r *Registry) {
		r.sessionParam = name
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		basePath:     DefaultBasePath,
		sessionParam: DefaultSessionParam,
		defs:         make(map[string]Definition),
		positions:    make(map[string]*Position),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BasePath returns the path prefix for position routes.
func (r *Registry) BasePath() string { return r.basePath }

// SessionParam returns the name of the session identifier parameter.
func (r *Registry) SessionParam() string { return r.sessionParam }

// Register records definitions under their stable names. Registering the
// same definition twice is a no-op; a name already taken by a different
// definition is an error.
func (r *Registry) Register(defs ...Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range defs {
		if err := r.register(def); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) register(def Definition) error {
	if r.bound {
		return fmt.Errorf("registry is bound; cannot register %q", def.Name())
	}
	if existing, ok := r.defs[def.Name()]; ok {
		if existing != def {
			return fmt.Errorf("flow component name %q already registered with a different definition", def.Name())
		}
		return nil
	}
	r.defs[def.Name()] = def
	return nil
}

// RegisterEntryPoint registers a definition and marks it as a flow entry
// point. Entry points are the roots the router exposes and the only places
// where a fresh session may be created.
func (r *Registry) RegisterEntryPoint(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.register(def); err != nil {
		return err
	}
	for _, e := range r.entries {
		if e == def {
			return nil
		}
	}
	r.entries = append(r.entries, def)
	return nil
}

// EntryPoints returns the registered entry-point definitions.
func (r *Registry) EntryPoints() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, len(r.entries))
	copy(out, r.entries)
	return out
}

// Resolve returns the definition for a Ref: identity when given a
// Definition, a registry lookup when given a name.
func (r *Registry) Resolve(ref Ref) (Definition, error) {
	switch v := ref.(type) {
	case Definition:
		return v, nil
	case string:
		r.mu.RLock()
		defer r.mu.RUnlock()
		def, ok := r.defs[v]
		if !ok {
			return nil, &UnknownComponentError{Name: v}
		}
		return def, nil
	default:
		return nil, fmt.Errorf("invalid component reference of type %T", ref)
	}
}

// Bind performs the two-phase build: it resolves every child declared by
// name to a concrete definition, failing loudly on any unresolved reference,
// then interns every root-to-leaf position reachable from the registered
// entry points. Bind is idempotent; after the first successful call the
// registry is read-only.
func (r *Registry) Bind() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bound {
		return nil
	}
	if len(r.entries) == 0 {
		return fmt.Errorf("no entry points registered")
	}

	// Phase 1: bind child name references on every registered branch.
	// Child definitions given by value are registered as a side effect so
	// inline trees resolve too; iterate until the set is stable.
	for {
		added := false
		for _, def := range snapshot(r.defs) {
			b, ok := def.(*Branch)
			if !ok {
				continue
			}
			for _, ref := range b.cfg.children {
				child, ok := ref.(Definition)
				if !ok {
					continue
				}
				if _, seen := r.defs[child.Name()]; !seen {
					if err := r.register(child); err != nil {
						return err
					}
					added = true
				}
			}
		}
		if !added {
			break
		}
	}
	for _, def := range r.defs {
		b, ok := def.(*Branch)
		if !ok {
			continue
		}
		resolved := make([]Definition, 0, len(b.cfg.children))
		for _, ref := range b.cfg.children {
			switch v := ref.(type) {
			case Definition:
				if existing := r.defs[v.Name()]; existing != v {
					return fmt.Errorf("branch %q child %q conflicts with a registered definition of the same name", b.Name(), v.Name())
				}
				resolved = append(resolved, v)
			case string:
				child, ok := r.defs[v]
				if !ok {
					return fmt.Errorf("branch %q references unknown child: %w", b.Name(), &UnknownComponentError{Name: v})
				}
				resolved = append(resolved, child)
			default:
				return fmt.Errorf("branch %q has an invalid child reference of type %T", b.Name(), ref)
			}
		}
		b.resolved = resolved
	}

	// Phase 2: intern every reachable position.
	for _, entry := range r.entries {
		if err := r.internTree(entry, nil, map[string]bool{}); err != nil {
			return err
		}
	}

	r.bound = true
	return nil
}

// internTree walks the static tree depth-first and interns a position for
// every root-to-leaf path.
func (r *Registry) internTree(def Definition, prefix []Definition, onPath map[string]bool) error {
	if onPath[def.Name()] {
		return fmt.Errorf("flow tree contains a cycle through %q", def.Name())
	}
	path := append(append([]Definition{}, prefix...), def)

	switch v := def.(type) {
	case *Leaf:
		r.intern(path)
		return nil
	case *Branch:
		onPath[def.Name()] = true
		defer delete(onPath, def.Name())
		for _, child := range v.resolved {
			if err := r.internTree(child, path, onPath); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported definition type %T for %q", def, def.Name())
	}
}

// intern returns the cached position for the path, creating it if absent.
// Callers must hold r.mu.
func (r *Registry) intern(path []Definition) *Position {
	name := canonicalName(path)
	if p, ok := r.positions[name]; ok {
		return p
	}
	p := newPosition(r, path, name)
	r.positions[name] = p
	r.ordered = append(r.ordered, p)
	return p
}

// Bound reports whether Bind has completed.
func (r *Registry) Bound() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bound
}

// Positions returns every interned position in declaration order.
func (r *Registry) Positions() []*Position {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Position, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// PositionByName returns the interned position for a canonical name, or
// UnknownPositionError.
func (r *Registry) PositionByName(name string) (*Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.positions[name]
	if !ok {
		return nil, &UnknownPositionError{Name: name}
	}
	return p, nil
}

// positionForPath returns the interned position for a definition path.
// Unknown paths are intentional errors: only paths reachable through the
// static tree are valid destinations.
func (r *Registry) positionForPath(path []Definition) (*Position, error) {
	return r.PositionByName(canonicalName(path))
}

// IsEntryPosition reports whether p is the initial position of a registered
// entry point, i.e. a place where a fresh session may be created.
func (r *Registry) IsEntryPosition(p *Position) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.entries {
		if canonicalName(entry.initialPath()) == p.Name() {
			return true
		}
	}
	return false
}

func snapshot(m map[string]Definition) []Definition {
	out := make([]Definition, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	return out
}
