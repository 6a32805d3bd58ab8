package spec

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vigil-run/vigil/internal/backend"
	"github.com/vigil-run/vigil/internal/check"
	"github.com/vigil-run/vigil/internal/vary"
)

var topLevelKeys = map[string]bool{
	"title":      true,
	"hypothesis": true,
	"inputs":     true,
	"variations": true,
	"checks":     true,
}

// Load reads, validates, expands and resolves a specification file.
// Any failure is a *Error and aborts before execution.
func Load(path string, varyReg *vary.Registry, checkReg *check.Registry) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeRead, Message: err.Error(), Path: path, Err: err}
	}

	if err := validateSchema(path, data); err != nil {
		return nil, attachPath(err, path)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Code: ErrCodeParse, Message: err.Error(), Path: path, Err: err}
	}
	if raw == nil {
		return nil, &Error{Code: ErrCodeParse, Message: "empty document", Path: path}
	}

	if err := checkTopLevelKeys(raw); err != nil {
		return nil, attachPath(err, path)
	}

	doc := &Document{Path: path}

	if title, ok := raw["title"].(string); ok {
		doc.Title = title
	}
	if doc.Title == "" {
		doc.Title = defaultTitle(path)
	}

	hypothesis, _ := raw["hypothesis"].(string)
	if hypothesis == "" {
		return nil, attachPath(newError(ErrCodeMissingField, "spec must define `hypothesis`"), path)
	}
	doc.Hypothesis = hypothesis

	doc.Inputs, err = parseInputs(raw["inputs"])
	if err != nil {
		return nil, attachPath(err, path)
	}

	variations, err := parseVariations(raw["variations"])
	if err != nil {
		return nil, attachPath(err, path)
	}
	doc.Variations, err = Expand(variations)
	if err != nil {
		return nil, attachPath(err, path)
	}
	if err := resolveVariations(doc.Variations, varyReg); err != nil {
		return nil, attachPath(err, path)
	}
	if len(doc.Variations) == 0 {
		// omitted variations mean a baseline-only run
		doc.Variations = []VariationSpec{{Type: vary.TypeNone}}
	}

	doc.Checks, err = parseChecks(raw["checks"], checkReg)
	if err != nil {
		return nil, attachPath(err, path)
	}

	return doc, nil
}

func attachPath(err error, path string) error {
	if specErr, ok := err.(*Error); ok && specErr.Path == "" {
		specErr.Path = path
	}
	return err
}

func checkTopLevelKeys(raw map[string]any) error {
	var unknown []string
	for key := range raw {
		if !topLevelKeys[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return newError(ErrCodeBadEntry, "unrecognized top-level keys %v", unknown)
}

// defaultTitle derives a readable title from the spec file name.
func defaultTitle(path string) string {
	stem := filepath.Base(path)
	if ext := filepath.Ext(stem); ext != "" {
		stem = stem[:len(stem)-len(ext)]
	}
	return "Behavioural verification of " + stem
}

func parseInputs(raw any) ([]InputRecord, error) {
	list, err := sectionList("inputs", raw)
	if err != nil {
		return nil, err
	}

	inputs := make([]InputRecord, 0, len(list))
	seen := make(map[string]bool, len(list))

	for i, entry := range list {
		rec, err := parseInput(i, entry)
		if err != nil {
			return nil, err
		}
		if seen[rec.ID] {
			return nil, newError(ErrCodeBadEntry, "duplicate input id %q", rec.ID)
		}
		seen[rec.ID] = true
		inputs = append(inputs, rec)
	}
	return inputs, nil
}

func parseInput(index int, entry any) (InputRecord, error) {
	rec := InputRecord{ID: fmt.Sprintf("%d", index)}

	m, isMap := entry.(map[string]any)
	if !isMap {
		// scalar inputs wrap under a "value" key
		rec.Data = backend.Input{"value": entry}
		return rec, nil
	}

	if id, ok := m["id"]; ok {
		rec.ID = fmt.Sprintf("%v", id)
	}

	if ref, ok := m["reference"]; ok {
		refMap, ok := ref.(map[string]any)
		if !ok {
			refMap = map[string]any{"value": ref}
		}
		rec.Reference = backend.CloneMap(refMap)
	}

	if data, ok := m["data"]; ok {
		dataMap, ok := data.(map[string]any)
		if !ok {
			dataMap = map[string]any{"value": data}
		}
		rec.Data = backend.CloneMap(dataMap)
		return rec, nil
	}

	// without an explicit data key, every field besides id/reference is data
	data := make(backend.Input)
	for k, v := range m {
		if k == "id" || k == "reference" {
			continue
		}
		data[k] = v
	}
	if len(data) == 0 {
		return InputRecord{}, newError(ErrCodeBadEntry,
			"input %q must carry data besides id/reference", rec.ID)
	}
	rec.Data = backend.CloneMap(data)
	return rec, nil
}

func parseVariations(raw any) ([]VariationSpec, error) {
	if raw == nil {
		return nil, nil // baseline-only run
	}
	list, ok := raw.([]any)
	if !ok {
		list = []any{raw}
	}

	out := make([]VariationSpec, 0, len(list))
	for _, entry := range list {
		v, err := parseVariation(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseVariation(entry any) (VariationSpec, error) {
	switch v := entry.(type) {
	case nil:
		return VariationSpec{Type: vary.TypeNone}, nil
	case string:
		return VariationSpec{Type: v}, nil
	case map[string]any:
		typeName, _ := v["type"].(string)
		if typeName == "" {
			return VariationSpec{}, newError(ErrCodeBadEntry, "variation entry must declare `type`: %v", v)
		}

		if typeName == vary.TypeRepeat {
			return parseRepeat(v)
		}

		params := make(map[string]any, len(v))
		for k, val := range v {
			if k != "type" {
				params[k] = val
			}
		}
		return VariationSpec{Type: typeName, Params: params}, nil
	default:
		return VariationSpec{}, newError(ErrCodeBadEntry, "invalid variation entry: %v", entry)
	}
}

func parseRepeat(m map[string]any) (VariationSpec, error) {
	for key := range m {
		if key != "type" && key != "times" && key != "do" {
			return VariationSpec{}, newError(ErrCodeBadRepeat, "repeat does not recognize key %q", key)
		}
	}

	times := 1
	if raw, ok := m["times"]; ok {
		n, ok := asInt(raw)
		if !ok {
			return VariationSpec{}, newError(ErrCodeBadRepeat, "repeat.times must be an integer, got %v", raw)
		}
		times = n
	}
	if times < 1 {
		return VariationSpec{}, newError(ErrCodeBadRepeat, "repeat.times must be >= 1, got %d", times)
	}

	rawDo, ok := m["do"].([]any)
	if !ok || len(rawDo) == 0 {
		return VariationSpec{}, newError(ErrCodeBadRepeat, "repeat.do must be a non-empty list")
	}

	do := make([]VariationSpec, 0, len(rawDo))
	for _, entry := range rawDo {
		v, err := parseVariation(entry)
		if err != nil {
			return VariationSpec{}, err
		}
		do = append(do, v)
	}

	return VariationSpec{Type: vary.TypeRepeat, Times: times, Do: do}, nil
}

// resolveVariations verifies every expanded entry names a registered
// transform and fills its domain. Param validation happens later, at
// materialization, where it is a materialization failure.
func resolveVariations(variations []VariationSpec, reg *vary.Registry) error {
	for i := range variations {
		v := &variations[i]
		if v.IsNone() {
			continue
		}
		def, ok := reg.Lookup(v.Type)
		if !ok {
			return newError(ErrCodeUnknownVariation,
				"unknown variation type %q (registered: %v)", v.Type, reg.Names())
		}
		v.Domain = def.Domain
	}
	return nil
}

func parseChecks(raw any, reg *check.Registry) ([]*check.Resolved, error) {
	list, err := sectionList("checks", raw)
	if err != nil {
		return nil, err
	}

	checks := make([]*check.Resolved, 0, len(list))
	for _, entry := range list {
		var name string
		var params map[string]any

		switch v := entry.(type) {
		case string:
			name = v
		case map[string]any:
			name, _ = v["type"].(string)
			if name == "" {
				return nil, newError(ErrCodeBadEntry, "check entry must declare `type`: %v", v)
			}
			params = make(map[string]any, len(v))
			for k, val := range v {
				if k != "type" {
					params[k] = val
				}
			}
		default:
			return nil, newError(ErrCodeBadEntry, "invalid check entry: %v", entry)
		}

		resolved, err := reg.Resolve(name, params)
		if err != nil {
			return nil, &Error{Code: ErrCodeUnknownCheck, Message: err.Error(), Err: err}
		}
		checks = append(checks, resolved)
	}
	return checks, nil
}

func sectionList(name string, raw any) ([]any, error) {
	if raw == nil {
		return nil, newError(ErrCodeMissingField, "spec must define `%s`", name)
	}
	list, ok := raw.([]any)
	if !ok {
		list = []any{raw}
	}
	if len(list) == 0 {
		return nil, newError(ErrCodeMissingField, "spec must define at least one item in `%s`", name)
	}
	return list, nil
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
