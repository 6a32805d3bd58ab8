package spec

import "github.com/vigil-run/vigil/internal/vary"

// Expand rewrites the authored variation list into a flat list with no sugar
// constructs. Expansion is purely syntactic and order-preserving: a
// repeat{times: 3, do: [A, B]} entry becomes A,B,A,B,A,B, and nested repeat
// blocks expand recursively depth-first before being flattened. Expanding an
// already-flat list returns it unchanged.
func Expand(variations []VariationSpec) ([]VariationSpec, error) {
	out := make([]VariationSpec, 0, len(variations))
	for _, v := range variations {
		expanded, err := expandOne(v)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func expandOne(v VariationSpec) ([]VariationSpec, error) {
	if v.Type != vary.TypeRepeat {
		return []VariationSpec{v}, nil
	}

	if v.Times < 1 {
		return nil, newError(ErrCodeBadRepeat, "repeat.times must be >= 1, got %d", v.Times)
	}
	if len(v.Do) == 0 {
		return nil, newError(ErrCodeBadRepeat, "repeat.do must be a non-empty list")
	}

	inner, err := Expand(v.Do)
	if err != nil {
		return nil, err
	}

	out := make([]VariationSpec, 0, len(inner)*v.Times)
	for i := 0; i < v.Times; i++ {
		out = append(out, inner...)
	}
	return out, nil
}
