package vary

import (
	"fmt"

	"github.com/vigil-run/vigil/internal/backend"
)

// setPayload merges a fixed set of key/value pairs into the payload. It backs
// the set_input, set_function and set_environment variation types: the merged
// pairs are the variation's own params.
type setPayload struct {
	values map[string]any
}

func newSetPayload(params map[string]any) (Transform, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("at least one key/value pair is required")
	}
	return &setPayload{values: backend.CloneMap(params)}, nil
}

func (t *setPayload) Apply(payload map[string]any) (map[string]any, error) {
	out := backend.CloneMap(payload)
	if out == nil {
		out = map[string]any{}
	}
	for k, v := range t.values {
		out[k] = v
	}
	return out, nil
}

// updateInputKeys merges the mapping declared under the "input" param into
// the input payload. Unlike set_input, the pairs are nested under one param
// so that keys like "label" stay available to the merge.
type updateInputKeys struct {
	values map[string]any
}

func newUpdateInputKeys(params map[string]any) (Transform, error) {
	if err := rejectUnknown(params, "input"); err != nil {
		return nil, err
	}
	values, err := mapParam(params, "input")
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf(`param "input" must be a non-empty mapping`)
	}
	return &updateInputKeys{values: backend.CloneMap(values)}, nil
}

func (t *updateInputKeys) Apply(payload map[string]any) (map[string]any, error) {
	out := backend.CloneMap(payload)
	if out == nil {
		out = map[string]any{}
	}
	for k, v := range t.values {
		out[k] = v
	}
	return out, nil
}
