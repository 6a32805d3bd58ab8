package check

import (
	"fmt"

	"github.com/vigil-run/vigil/internal/run"
)

// fieldsPresent asserts that every declared field exists in a slice's output
// and is non-empty. A cheap sanity check for backends whose output schema is
// known in advance.
type fieldsPresent struct {
	fields []string
}

func newFieldsPresent(params map[string]any) (any, error) {
	c := &fieldsPresent{}
	for key, value := range params {
		switch key {
		case "fields":
			list, ok := value.([]any)
			if !ok || len(list) == 0 {
				return nil, fmt.Errorf("param %q: want non-empty list of strings, got %v", key, value)
			}
			for i, elem := range list {
				s, ok := elem.(string)
				if !ok {
					return nil, fmt.Errorf("param %q[%d]: want string, got %T", key, i, elem)
				}
				c.fields = append(c.fields, s)
			}
		default:
			return nil, fmt.Errorf("unrecognized param %q", key)
		}
	}
	if len(c.fields) == 0 {
		return nil, fmt.Errorf(`param "fields" is required`)
	}
	return c, nil
}

// CheckRecord implements Unary.
func (c *fieldsPresent) CheckRecord(rec *run.Record) (Status, map[string]any, error) {
	var missing, empty []string
	for _, field := range c.fields {
		raw, ok := rec.Output[field]
		if !ok {
			missing = append(missing, field)
			continue
		}
		if s, isStr := raw.(string); isStr && s == "" {
			empty = append(empty, field)
		}
	}

	if len(missing) == 0 && len(empty) == 0 {
		return StatusPass, map[string]any{"fields": c.fields}, nil
	}

	details := map[string]any{"fields": c.fields}
	if len(missing) > 0 {
		details["missing"] = missing
	}
	if len(empty) > 0 {
		details["empty"] = empty
	}

	if len(missing) > 0 {
		return StatusError, details, nil
	}
	return StatusWarn, details, nil
}
