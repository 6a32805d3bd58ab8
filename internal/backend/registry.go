package backend

import (
	"fmt"
	"sort"
)

// Factory constructs a backend from its base configuration.
type Factory func(cfg Config) (Backend, error)

// Registry maps backend names to factories. Unknown names fail fast when a
// run is configured rather than silently no-op.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry pre-populated with the built-in backends.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("noop", func(cfg Config) (Backend, error) {
		return NewNoop(cfg), nil
	})
	r.Register("command", NewCommand)
	return r
}

// Register adds a backend factory under the given name.
// Registering a duplicate name panics: it is a wiring bug, not a runtime condition.
func (r *Registry) Register(name string, factory Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("backend %q already registered", name))
	}
	r.factories[name] = factory
}

// Resolve constructs the named backend with the given base configuration.
func (r *Registry) Resolve(name string, cfg Config) (Backend, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (registered: %v)", name, r.Names())
	}
	return factory(cfg)
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
