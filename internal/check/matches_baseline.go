package check

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/vigil-run/vigil/internal/run"
)

// matchesBaseline asserts that a variant slice's output equals the baseline
// output for the same input. On mismatch it reports the differing fields.
type matchesBaseline struct {
	includeDiff bool
	maxFields   int
}

func newMatchesBaseline(params map[string]any) (any, error) {
	c := &matchesBaseline{includeDiff: true, maxFields: 200}
	for key, value := range params {
		switch key {
		case "include_diff":
			b, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("param %q: want bool, got %T", key, value)
			}
			c.includeDiff = b
		case "max_fields":
			n, ok := asInt(value)
			if !ok || n < 1 {
				return nil, fmt.Errorf("param %q: want positive integer, got %v", key, value)
			}
			c.maxFields = n
		default:
			return nil, fmt.Errorf("unrecognized param %q", key)
		}
	}
	return c, nil
}

// Compare implements Reference.
func (c *matchesBaseline) Compare(rec, baseline *run.Record) (Status, map[string]any, error) {
	base, err := canonicalJSON(baseline.Output)
	if err != nil {
		return 0, nil, fmt.Errorf("canonicalize baseline output: %w", err)
	}
	other, err := canonicalJSON(rec.Output)
	if err != nil {
		return 0, nil, fmt.Errorf("canonicalize slice output: %w", err)
	}

	if base == other {
		return StatusPass, map[string]any{"matched": true}, nil
	}

	details := map[string]any{
		"matched":            false,
		"baseline_slice":     baseline.SliceID(),
		"baseline_timestamp": baseline.FinishedAt,
		"slice_timestamp":    rec.FinishedAt,
	}

	if c.includeDiff {
		fields := diffFields(baseline.Output, rec.Output, "")
		truncated := len(fields) > c.maxFields
		if truncated {
			fields = fields[:c.maxFields]
		}
		details["diff"] = fields
		details["diff_truncated"] = truncated
	}

	return StatusError, details, nil
}

// diffFields walks two payloads and names every field path whose value
// differs, with the baseline and variant values side by side.
func diffFields(base, other map[string]any, prefix string) []map[string]any {
	keys := make(map[string]bool, len(base)+len(other))
	for k := range base {
		keys[k] = true
	}
	for k := range other {
		keys[k] = true
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var out []map[string]any
	for _, k := range sorted {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}

		bv, inBase := base[k]
		ov, inOther := other[k]

		switch {
		case !inBase:
			out = append(out, map[string]any{"field": path, "baseline": nil, "slice": ov, "added": true})
		case !inOther:
			out = append(out, map[string]any{"field": path, "baseline": bv, "slice": nil, "removed": true})
		default:
			bm, bIsMap := bv.(map[string]any)
			om, oIsMap := ov.(map[string]any)
			if bIsMap && oIsMap {
				out = append(out, diffFields(bm, om, path)...)
				continue
			}
			if !reflect.DeepEqual(bv, ov) {
				out = append(out, map[string]any{"field": path, "baseline": bv, "slice": ov})
			}
		}
	}
	return out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
