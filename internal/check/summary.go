package check

import (
	"fmt"
	"sort"

	"github.com/vigil-run/vigil/internal/run"
)

// summary is a diagnostic check that records each slice's raw output (or
// failure) into the report. It exists purely to attach observed behaviour to
// the report; it never asserts.
type summary struct {
	maxItems int // 0 means unlimited
}

func newSummary(params map[string]any) (any, error) {
	c := &summary{}
	for key, value := range params {
		switch key {
		case "max_items":
			n, ok := asInt(value)
			if !ok || n < 1 {
				return nil, fmt.Errorf("param %q: want positive integer, got %v", key, value)
			}
			c.maxItems = n
		default:
			return nil, fmt.Errorf("unrecognized param %q", key)
		}
	}
	return c, nil
}

// CheckRecord implements Unary.
func (c *summary) CheckRecord(rec *run.Record) (Status, map[string]any, error) {
	if rec.Failed() {
		return StatusInfo, map[string]any{
			"failed":  true,
			"kind":    rec.Failure.Kind,
			"message": rec.Failure.Message,
		}, nil
	}

	out := rec.Output
	truncated := false
	if c.maxItems > 0 && len(out) > c.maxItems {
		keys := make([]string, 0, len(out))
		for k := range out {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		trimmed := make(map[string]any, c.maxItems)
		for _, k := range keys[:c.maxItems] {
			trimmed[k] = out[k]
		}
		out = trimmed
		truncated = true
	}

	return StatusInfo, map[string]any{
		"output":    out,
		"truncated": truncated,
	}, nil
}
