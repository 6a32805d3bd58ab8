package check

import (
	"fmt"

	"github.com/vigil-run/vigil/internal/run"
)

// labelsAgree computes the agreement ratio of a labelled field across all
// slices of an input group: the share of slices carrying the modal value.
// Ratio at or above pass_threshold is PASS, at or above warn_threshold is
// WARN, below is ERROR.
type labelsAgree struct {
	field         string
	passThreshold float64
	warnThreshold float64
}

func newLabelsAgree(params map[string]any) (any, error) {
	c := &labelsAgree{field: "label", passThreshold: 1.0, warnThreshold: 0.5}
	for key, value := range params {
		switch key {
		case "field":
			s, ok := value.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("param %q: want non-empty string, got %v", key, value)
			}
			c.field = s
		case "pass_threshold":
			f, ok := asFloat(value)
			if !ok || f < 0 || f > 1 {
				return nil, fmt.Errorf("param %q: want number in [0,1], got %v", key, value)
			}
			c.passThreshold = f
		case "warn_threshold":
			f, ok := asFloat(value)
			if !ok || f < 0 || f > 1 {
				return nil, fmt.Errorf("param %q: want number in [0,1], got %v", key, value)
			}
			c.warnThreshold = f
		default:
			return nil, fmt.Errorf("unrecognized param %q", key)
		}
	}
	if c.warnThreshold > c.passThreshold {
		return nil, fmt.Errorf("warn_threshold must not exceed pass_threshold")
	}
	return c, nil
}

// CheckGroup implements Group.
func (c *labelsAgree) CheckGroup(recs []*run.Record) (Status, map[string]any, error) {
	if len(recs) < 2 {
		return StatusWarn, map[string]any{
			"skipped": true,
			"reason":  fmt.Sprintf("agreement needs at least 2 slices, got %d", len(recs)),
		}, nil
	}

	counts := make(map[string]int)
	var missing []string
	for _, rec := range recs {
		raw, ok := rec.Output[c.field]
		if !ok {
			missing = append(missing, rec.SliceID())
			continue
		}
		counts[fmt.Sprintf("%v", raw)]++
	}

	if len(missing) == len(recs) {
		return 0, nil, fmt.Errorf("field %q absent from every output", c.field)
	}

	total := len(recs) - len(missing)
	modal, modalCount := "", 0
	for label, n := range counts {
		if n > modalCount {
			modal, modalCount = label, n
		}
	}

	ratio := float64(modalCount) / float64(total)

	status := StatusError
	switch {
	case ratio >= c.passThreshold:
		status = StatusPass
	case ratio >= c.warnThreshold:
		status = StatusWarn
	}

	details := map[string]any{
		"field":       c.field,
		"ratio":       ratio,
		"modal_value": modal,
		"counts":      counts,
		"n_slices":    len(recs),
	}
	if len(missing) > 0 {
		details["missing_field"] = missing
	}
	return status, details, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
