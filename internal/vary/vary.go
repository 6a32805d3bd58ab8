// Package vary defines the variation transform contract and the registry of
// built-in transforms.
//
// A variation targets exactly one domain: the input payload, the function
// configuration, or the environment configuration. A transform is a pure
// function over its domain's payload; it is never given access to backend
// output or execution state, so a variation cannot read or write outside its
// declared domain by construction.
package vary

import (
	"fmt"
	"sort"
)

// Domain is the axis a variation targets.
type Domain string

const (
	DomainInput       Domain = "input"
	DomainFunction    Domain = "function"
	DomainEnvironment Domain = "environment"
)

// TypeNone is the reserved baseline variation type. It requires no
// registration and carries no transformation.
const TypeNone = "none"

// TypeRepeat is the reserved sugar construct expanded away before
// materialization. It never reaches the registry.
const TypeRepeat = "repeat"

// Transform rewrites a payload scoped to the variation's domain. Transforms
// must not mutate the payload they receive; they return a new payload (or the
// same one when nothing changed).
type Transform interface {
	Apply(payload map[string]any) (map[string]any, error)
}

// Factory constructs a transform from the variation's declared params.
// Unknown param keys are an error, not ignored.
type Factory func(params map[string]any) (Transform, error)

// Definition ties a registered transform type to its domain and factory.
type Definition struct {
	Domain  Domain
	Factory Factory
}

// Registry maps variation type names to definitions.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry creates a registry pre-populated with the built-in transforms.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]Definition)}

	r.Register("set_input", DomainInput, newSetPayload)
	r.Register("update_input_keys", DomainInput, newUpdateInputKeys)
	r.Register("set_function", DomainFunction, newSetPayload)
	r.Register("set_environment", DomainEnvironment, newSetPayload)
	r.Register("add_typos", DomainInput, newAddTypos)
	r.Register("perturb_whitespace", DomainInput, newPerturbWhitespace)
	r.Register("perturb_linebreaks", DomainInput, newPerturbLinebreaks)
	r.Register("insert_junk_characters", DomainInput, newInsertJunkCharacters)
	r.Register("add_boilerplate", DomainInput, newAddBoilerplate)
	r.Register("inject_headline", DomainInput, newInjectHeadline)

	return r
}

// Register adds a transform type. Registering a duplicate or reserved name
// panics: it is a wiring bug, not a runtime condition.
func (r *Registry) Register(name string, domain Domain, factory Factory) {
	if name == TypeNone || name == TypeRepeat {
		panic(fmt.Sprintf("variation type %q is reserved", name))
	}
	if _, exists := r.defs[name]; exists {
		panic(fmt.Sprintf("variation type %q already registered", name))
	}
	r.defs[name] = Definition{Domain: domain, Factory: factory}
}

// Lookup returns the definition for a registered type name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
