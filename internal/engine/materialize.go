package engine

import (
	"fmt"

	"github.com/vigil-run/vigil/internal/backend"
	"github.com/vigil-run/vigil/internal/run"
	"github.com/vigil-run/vigil/internal/spec"
	"github.com/vigil-run/vigil/internal/vary"
)

// Materialize expands a parsed document into the concrete slice list:
// one slice per (input, variation) pair, variations outer and inputs inner,
// both in declaration order.
//
// Every transform is applied here, before any backend call, so the full shape
// of the run is known up front and a bad variation aborts with zero side
// effects. Slices are immutable once returned.
//
// INVARIANTS:
//   - len(slices) == len(inputs) * len(variations)
//   - (InputID, VariationID) is unique across the returned slices
//   - base config maps are deep-copied per slice; no two slices alias payloads
func Materialize(doc *spec.Document, base backend.Config, reg *vary.Registry) ([]*run.Slice, error) {
	slices := make([]*run.Slice, 0, len(doc.Inputs)*len(doc.Variations))
	seen := make(map[string]bool)
	counts := make(map[string]int)

	for _, v := range doc.Variations {
		mv, err := resolveVariation(&v, reg, counts)
		if err != nil {
			return nil, err
		}

		for _, input := range doc.Inputs {
			slice, err := mv.slice(input, base)
			if err != nil {
				return nil, err
			}
			key := slice.ID()
			if seen[key] {
				return nil, newMaterializationError(ErrCodeDuplicateSlice, v.Type, mv.id,
					fmt.Sprintf("slice %s already materialized", key), nil)
			}
			seen[key] = true
			slices = append(slices, slice)
		}
	}

	return slices, nil
}

// materializedVariation is a variation with its transform instantiated and its
// reserved params interpreted, ready to stamp out one slice per input.
type materializedVariation struct {
	id        string
	vtype     string
	domain    vary.Domain
	label     string
	targets   vary.Reserved
	transform vary.Transform
}

func resolveVariation(v *spec.VariationSpec, reg *vary.Registry, counts map[string]int) (*materializedVariation, error) {
	reserved, rest, err := vary.SplitReserved(v.Params)
	if err != nil {
		return nil, newMaterializationError(ErrCodeInvalidParams, v.Type, "", err.Error(), err)
	}

	if v.IsNone() {
		if len(rest) > 0 {
			return nil, newMaterializationError(ErrCodeInvalidParams, v.Type, run.BaselineID,
				fmt.Sprintf("the none variation takes no params, got %d", len(rest)), nil)
		}
		return &materializedVariation{
			id:    run.BaselineID,
			vtype: vary.TypeNone,
			label: reserved.Label,
		}, nil
	}

	def, ok := reg.Lookup(v.Type)
	if !ok {
		return nil, newMaterializationError(ErrCodeUnknownVariation, v.Type, "",
			"no registered variation of this type", nil)
	}
	if def.Domain != vary.DomainInput && reserved.Inputs != nil {
		return nil, newMaterializationError(ErrCodeInvalidParams, v.Type, "",
			`param "inputs" only applies to input-domain variations`, nil)
	}

	transform, err := def.Factory(rest)
	if err != nil {
		return nil, newMaterializationError(ErrCodeInvalidParams, v.Type, "", err.Error(), err)
	}

	// Repeated occurrences of a type get an ordinal suffix so the
	// (input, variation) key stays unique: add_typos, add_typos-2, ...
	counts[v.Type]++
	id := v.Type
	if n := counts[v.Type]; n > 1 {
		id = fmt.Sprintf("%s-%d", v.Type, n)
	}

	return &materializedVariation{
		id:        id,
		vtype:     v.Type,
		domain:    def.Domain,
		label:     reserved.Label,
		targets:   reserved,
		transform: transform,
	}, nil
}

// slice stamps one concrete slice for the given input, deep-copying the base
// config so transforms never alias shared state.
func (m *materializedVariation) slice(input spec.InputRecord, base backend.Config) (*run.Slice, error) {
	s := &run.Slice{
		InputID:       input.ID,
		VariationID:   m.id,
		VariationType: m.vtype,
		Label:         m.label,
		Input:         backend.CloneMap(input.Data),
		Function:      backend.CloneMap(base.Function),
		Environment:   backend.CloneMap(base.Environment),
	}

	if m.transform == nil {
		// Baseline: untouched payloads, plus any declared reference output.
		s.Reference = backend.CloneMap(input.Reference)
		return s, nil
	}

	switch m.domain {
	case vary.DomainInput:
		// Untargeted inputs still get a slice, just with the payload unchanged.
		if !m.targets.Targets(input.ID) {
			return s, nil
		}
		out, err := m.transform.Apply(s.Input)
		if err != nil {
			return nil, m.transformError(input.ID, err)
		}
		s.Input = out
	case vary.DomainFunction:
		out, err := m.transform.Apply(s.Function)
		if err != nil {
			return nil, m.transformError(input.ID, err)
		}
		s.Function = out
	case vary.DomainEnvironment:
		out, err := m.transform.Apply(s.Environment)
		if err != nil {
			return nil, m.transformError(input.ID, err)
		}
		s.Environment = out
	default:
		return nil, newMaterializationError(ErrCodeUnknownVariation, m.vtype, m.id,
			fmt.Sprintf("unknown domain %q", m.domain), nil)
	}

	return s, nil
}

func (m *materializedVariation) transformError(inputID string, err error) *MaterializationError {
	return newMaterializationError(ErrCodeTransformFailed, m.vtype, m.id,
		fmt.Sprintf("apply to input %s: %v", inputID, err), err)
}
