// Package check defines the check contract, the registry of built-in checks,
// and the typed result model.
//
// Checks operate exclusively on already-recorded execution records: they
// never trigger new execution, never mutate slices, and never observe each
// other's results. A check that errors internally converts to an ERROR result
// attributed to that check; it does not abort evaluation of other checks.
package check

import (
	"fmt"
	"sort"

	"github.com/vigil-run/vigil/internal/run"
)

// Unary is the contract for checks that evaluate one record at a time.
type Unary interface {
	CheckRecord(rec *run.Record) (Status, map[string]any, error)
}

// Reference is the contract for checks that compare a record against the
// baseline record for the same input.
type Reference interface {
	Compare(rec, baseline *run.Record) (Status, map[string]any, error)
}

// Group is the contract for checks that evaluate all records of an input
// group jointly.
type Group interface {
	CheckGroup(recs []*run.Record) (Status, map[string]any, error)
}

// Fault codes attached to results when the outcome is not a clean evaluation.
// Reports must never collapse these into ordinary drift findings.
const (
	FaultCheckError       = "CHECK_ERROR"        // the check itself raised
	FaultReferenceMissing = "REFERENCE_MISSING"  // no baseline record to reference
	FaultSliceFailed      = "SLICE_NOT_EXECUTED" // the slice under evaluation failed to execute
)

// Fault records that a check failed to evaluate, as opposed to evaluating
// and finding drift.
type Fault struct {
	Code    string `yaml:"code" json:"code"`
	Message string `yaml:"message" json:"message"`
}

// Scope identifies what a result evaluated.
type Scope struct {
	InputID  string   `yaml:"input_id,omitempty" json:"input_id,omitempty"`
	SliceIDs []string `yaml:"slices,omitempty" json:"slices,omitempty"`
}

// Result is one typed check outcome.
type Result struct {
	CheckName string         `yaml:"check" json:"check"`
	Scope     Scope          `yaml:"scope" json:"scope"`
	Status    Status         `yaml:"-" json:"-"`
	Details   map[string]any `yaml:"details,omitempty" json:"details,omitempty"`

	// Fault is set when the check errored or its baseline was missing.
	Fault *Fault `yaml:"fault,omitempty" json:"fault,omitempty"`
}

// Factory constructs a check implementation from its declared params.
// The returned value must implement the interface matching the declared intent.
type Factory func(params map[string]any) (any, error)

// Definition ties a registered check name to its intent, mode and factory.
type Definition struct {
	Intent  Intent
	Mode    Mode
	Factory Factory
}

// Resolved is a check bound to its implementation, produced at specification
// parse time so unknown names and malformed params fail before any execution.
type Resolved struct {
	Name   string
	Label  string
	Intent Intent
	Mode   Mode
	Params map[string]any
	Impl   any
}

// Registry maps check names to definitions.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry creates a registry pre-populated with the built-in checks.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]Definition)}

	r.Register("matches_baseline", IntentReference, ModeAssertive, newMatchesBaseline)
	r.Register("summary", IntentUnary, ModeDiagnostic, newSummary)
	r.Register("labels_agree", IntentGroup, ModeAssertive, newLabelsAgree)
	r.Register("fields_present", IntentUnary, ModeAssertive, newFieldsPresent)

	return r
}

// Register adds a check definition. Registering a duplicate name panics: it
// is a wiring bug, not a runtime condition.
func (r *Registry) Register(name string, intent Intent, mode Mode, factory Factory) {
	if _, exists := r.defs[name]; exists {
		panic(fmt.Sprintf("check %q already registered", name))
	}
	r.defs[name] = Definition{Intent: intent, Mode: mode, Factory: factory}
}

// Lookup returns the definition for a registered check name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Names returns the registered check names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve constructs the named check from its params and verifies the
// implementation matches the declared intent.
func (r *Registry) Resolve(name string, params map[string]any) (*Resolved, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("unknown check %q (registered: %v)", name, r.Names())
	}

	label, rest := splitLabel(params)

	impl, err := def.Factory(rest)
	if err != nil {
		return nil, fmt.Errorf("check %q: %w", name, err)
	}

	switch def.Intent {
	case IntentUnary:
		if _, ok := impl.(Unary); !ok {
			return nil, fmt.Errorf("check %q: implementation does not satisfy unary intent", name)
		}
	case IntentReference:
		if _, ok := impl.(Reference); !ok {
			return nil, fmt.Errorf("check %q: implementation does not satisfy reference intent", name)
		}
	case IntentGroup:
		if _, ok := impl.(Group); !ok {
			return nil, fmt.Errorf("check %q: implementation does not satisfy group intent", name)
		}
	default:
		return nil, fmt.Errorf("check %q: unknown intent %q", name, def.Intent)
	}

	return &Resolved{
		Name:   name,
		Label:  label,
		Intent: def.Intent,
		Mode:   def.Mode,
		Params: rest,
		Impl:   impl,
	}, nil
}

func splitLabel(params map[string]any) (string, map[string]any) {
	rest := make(map[string]any, len(params))
	label := ""
	for k, v := range params {
		if k == "label" {
			if s, ok := v.(string); ok {
				label = s
				continue
			}
		}
		rest[k] = v
	}
	return label, rest
}
