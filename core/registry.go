package core

import "fmt"

// Registry maps kind names to record factories. Registration order is kept
// and is the order in which legacy loading probes kinds.
type Registry struct {
	order     []string
	factories map[string]func() Record
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]func() Record),
	}
}

// DefaultRegistry returns a Registry with the built-in models.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindUser, func() Record { return &User{} })
	r.Register(KindCampaign, func() Record { return &Campaign{} })
	return r
}

// Register adds a kind. Registering an existing kind replaces its factory
// but keeps its original position.
func (r *Registry) Register(kind string, factory func() Record) {
	if _, ok := r.factories[kind]; !ok {
		r.order = append(r.order, kind)
	}
	r.factories[kind] = factory
}

// New returns an empty record of the given kind.
func (r *Registry) New(kind string) (Record, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return factory(), nil
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
