package vary

import (
	"fmt"
	"sort"
)

// Reserved params are interpreted by the engine rather than the transform:
// "label" annotates the variation in reports, and "inputs" restricts an
// input-domain variation to specific input IDs ("all" or omitted means every
// input).
type Reserved struct {
	Label  string
	Inputs []string // nil means all inputs
}

// Targets reports whether the variation applies to the given input ID.
func (r Reserved) Targets(inputID string) bool {
	if r.Inputs == nil {
		return true
	}
	for _, id := range r.Inputs {
		if id == inputID {
			return true
		}
	}
	return false
}

// SplitReserved separates engine-interpreted params from transform params.
// The returned map is a copy; the original params are not modified.
func SplitReserved(params map[string]any) (Reserved, map[string]any, error) {
	var res Reserved
	rest := make(map[string]any, len(params))

	for key, value := range params {
		switch key {
		case "label":
			s, ok := value.(string)
			if !ok {
				return Reserved{}, nil, fmt.Errorf("param %q: want string, got %T", key, value)
			}
			res.Label = s
		case "inputs":
			ids, err := parseTargets(value)
			if err != nil {
				return Reserved{}, nil, fmt.Errorf("param %q: %w", key, err)
			}
			res.Inputs = ids
		default:
			rest[key] = value
		}
	}

	return res, rest, nil
}

func parseTargets(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		if v == "all" {
			return nil, nil
		}
		return []string{v}, nil
	case []any:
		ids := make([]string, len(v))
		for i, elem := range v {
			switch id := elem.(type) {
			case string:
				ids[i] = id
			case int:
				ids[i] = fmt.Sprintf("%d", id)
			default:
				return nil, fmt.Errorf("input id must be a string, got %T", elem)
			}
		}
		return ids, nil
	default:
		return nil, fmt.Errorf(`want "all", an input id, or a list of ids, got %T`, value)
	}
}

// rejectUnknown fails when params contain keys outside the recognized set.
// Unknown keys are a configuration error, never silently ignored.
func rejectUnknown(params map[string]any, known ...string) error {
	recognized := make(map[string]bool, len(known))
	for _, k := range known {
		recognized[k] = true
	}

	var unknown []string
	for key := range params {
		if !recognized[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("unrecognized params %v (recognized: %v)", unknown, known)
}

func stringParam(params map[string]any, key, fallback string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return fallback, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("param %q: want string, got %T", key, raw)
	}
	return s, nil
}

func intParam(params map[string]any, key string, fallback int) (int, error) {
	raw, ok := params[key]
	if !ok {
		return fallback, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
		return 0, fmt.Errorf("param %q: want integer, got %v", key, v)
	default:
		return 0, fmt.Errorf("param %q: want integer, got %T", key, raw)
	}
}

func floatParam(params map[string]any, key string, fallback float64) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return fallback, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("param %q: want number, got %T", key, raw)
	}
}

func stringListParam(params map[string]any, key string, fallback []string) ([]string, error) {
	raw, ok := params[key]
	if !ok {
		return fallback, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("param %q: want list of strings, got %T", key, raw)
	}
	out := make([]string, len(list))
	for i, elem := range list {
		s, ok := elem.(string)
		if !ok {
			return nil, fmt.Errorf("param %q[%d]: want string, got %T", key, i, elem)
		}
		out[i] = s
	}
	return out, nil
}

func mapParam(params map[string]any, key string) (map[string]any, error) {
	raw, ok := params[key]
	if !ok {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("param %q: want mapping, got %T", key, raw)
	}
	return m, nil
}
