package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-run/vigil/internal/backend"
	"github.com/vigil-run/vigil/internal/spec"
	"github.com/vigil-run/vigil/internal/vary"
)

func testDoc(inputs []spec.InputRecord, variations []spec.VariationSpec) *spec.Document {
	return &spec.Document{
		Path:       "test.yml",
		Title:      "test",
		Hypothesis: "h",
		Inputs:     inputs,
		Variations: variations,
	}
}

func twoInputs() []spec.InputRecord {
	return []spec.InputRecord{
		{ID: "a", Data: backend.Input{"text": "alpha bravo"}},
		{ID: "b", Data: backend.Input{"text": "charlie delta"}},
	}
}

func TestMaterialize_CrossProduct(t *testing.T) {
	doc := testDoc(twoInputs(), []spec.VariationSpec{
		{Type: vary.TypeNone},
		{Type: "add_typos", Domain: vary.DomainInput, Params: map[string]any{"seed": 1}},
		{Type: "perturb_whitespace", Domain: vary.DomainInput},
	})

	slices, err := Materialize(doc, backend.Config{}, vary.NewRegistry())
	require.NoError(t, err)

	// |inputs| x |variations|
	require.Len(t, slices, 6)

	// variations outer, inputs inner
	assert.Equal(t, "input-a-baseline", slices[0].ID())
	assert.Equal(t, "input-b-baseline", slices[1].ID())
	assert.Equal(t, "input-a-add_typos", slices[2].ID())
	assert.Equal(t, "input-b-add_typos", slices[3].ID())
	assert.Equal(t, "input-a-perturb_whitespace", slices[4].ID())

	// uniqueness
	seen := map[string]bool{}
	for _, s := range slices {
		assert.False(t, seen[s.ID()], "duplicate slice %s", s.ID())
		seen[s.ID()] = true
	}
}

func TestMaterialize_RepeatedTypeGetsOrdinalIDs(t *testing.T) {
	doc := testDoc(twoInputs()[:1], []spec.VariationSpec{
		{Type: "add_typos", Domain: vary.DomainInput, Params: map[string]any{"seed": 1}},
		{Type: "add_typos", Domain: vary.DomainInput, Params: map[string]any{"seed": 2}},
		{Type: "add_typos", Domain: vary.DomainInput, Params: map[string]any{"seed": 3}},
	})

	slices, err := Materialize(doc, backend.Config{}, vary.NewRegistry())
	require.NoError(t, err)

	require.Len(t, slices, 3)
	assert.Equal(t, "add_typos", slices[0].VariationID)
	assert.Equal(t, "add_typos-2", slices[1].VariationID)
	assert.Equal(t, "add_typos-3", slices[2].VariationID)
}

func TestMaterialize_BaselineKeepsPayloadAndReference(t *testing.T) {
	ref := backend.Output{"label": "spam"}
	doc := testDoc([]spec.InputRecord{
		{ID: "a", Data: backend.Input{"text": "original"}, Reference: ref},
	}, []spec.VariationSpec{{Type: vary.TypeNone}})

	slices, err := Materialize(doc, backend.Config{}, vary.NewRegistry())
	require.NoError(t, err)

	require.Len(t, slices, 1)
	s := slices[0]
	assert.True(t, s.IsBaseline())
	assert.Equal(t, "original", s.Input["text"])
	assert.Equal(t, map[string]any{"label": "spam"}, map[string]any(s.Reference))
}

func TestMaterialize_InputTransformAppliedPerSlice(t *testing.T) {
	doc := testDoc(twoInputs(), []spec.VariationSpec{
		{Type: vary.TypeNone},
		{Type: "set_input", Domain: vary.DomainInput, Params: map[string]any{"text": "REPLACED"}},
	})

	slices, err := Materialize(doc, backend.Config{}, vary.NewRegistry())
	require.NoError(t, err)
	require.Len(t, slices, 4)

	assert.Equal(t, "alpha bravo", slices[0].Input["text"])
	assert.Equal(t, "REPLACED", slices[2].Input["text"])
	assert.Equal(t, "REPLACED", slices[3].Input["text"])
}

func TestMaterialize_TargetedVariationSkipsOtherInputs(t *testing.T) {
	doc := testDoc(twoInputs(), []spec.VariationSpec{
		{Type: "set_input", Domain: vary.DomainInput, Params: map[string]any{
			"inputs": "a",
			"text":   "REPLACED",
		}},
	})

	slices, err := Materialize(doc, backend.Config{}, vary.NewRegistry())
	require.NoError(t, err)

	// untargeted inputs still produce a slice, with the payload unchanged
	require.Len(t, slices, 2)
	assert.Equal(t, "REPLACED", slices[0].Input["text"])
	assert.Equal(t, "charlie delta", slices[1].Input["text"])
}

func TestMaterialize_FunctionAndEnvironmentDomains(t *testing.T) {
	base := backend.Config{
		Function:    backend.FunctionConfig{"model": "large", "temp": 0.0},
		Environment: backend.EnvironmentConfig{"region": "eu"},
	}
	doc := testDoc(twoInputs()[:1], []spec.VariationSpec{
		{Type: "set_function", Domain: vary.DomainFunction, Params: map[string]any{"model": "small"}},
		{Type: "set_environment", Domain: vary.DomainEnvironment, Params: map[string]any{"region": "us"}},
	})

	slices, err := Materialize(doc, base, vary.NewRegistry())
	require.NoError(t, err)
	require.Len(t, slices, 2)

	assert.Equal(t, "small", slices[0].Function["model"])
	assert.Equal(t, 0.0, slices[0].Function["temp"])
	assert.Equal(t, "eu", slices[0].Environment["region"])

	assert.Equal(t, "large", slices[1].Function["model"])
	assert.Equal(t, "us", slices[1].Environment["region"])

	// base config untouched
	assert.Equal(t, "large", base.Function["model"])
	assert.Equal(t, "eu", base.Environment["region"])
}

func TestMaterialize_LabelCarriedOntoSlices(t *testing.T) {
	doc := testDoc(twoInputs()[:1], []spec.VariationSpec{
		{Type: "add_typos", Domain: vary.DomainInput, Params: map[string]any{"label": "noisy", "seed": 1}},
	})

	slices, err := Materialize(doc, backend.Config{}, vary.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "noisy", slices[0].Label)
}

func TestMaterialize_UnknownVariation(t *testing.T) {
	doc := testDoc(twoInputs(), []spec.VariationSpec{{Type: "scramble_everything"}})

	_, err := Materialize(doc, backend.Config{}, vary.NewRegistry())
	require.Error(t, err)
	var merr *MaterializationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ErrCodeUnknownVariation, merr.Code)
}

func TestMaterialize_BadParams(t *testing.T) {
	doc := testDoc(twoInputs(), []spec.VariationSpec{
		{Type: "add_typos", Domain: vary.DomainInput, Params: map[string]any{"n_edits": -1}},
	})

	_, err := Materialize(doc, backend.Config{}, vary.NewRegistry())
	var merr *MaterializationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ErrCodeInvalidParams, merr.Code)
}

func TestMaterialize_TargetingOnNonInputDomainRejected(t *testing.T) {
	doc := testDoc(twoInputs(), []spec.VariationSpec{
		{Type: "set_function", Domain: vary.DomainFunction, Params: map[string]any{
			"inputs": "a",
			"model":  "small",
		}},
	})

	_, err := Materialize(doc, backend.Config{}, vary.NewRegistry())
	var merr *MaterializationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ErrCodeInvalidParams, merr.Code)
}

func TestMaterialize_DuplicateBaselineRejected(t *testing.T) {
	doc := testDoc(twoInputs(), []spec.VariationSpec{
		{Type: vary.TypeNone},
		{Type: vary.TypeNone},
	})

	_, err := Materialize(doc, backend.Config{}, vary.NewRegistry())
	var merr *MaterializationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ErrCodeDuplicateSlice, merr.Code)
}

func TestMaterialize_TransformFailureNamesInput(t *testing.T) {
	// add_typos requires a string "text" field
	doc := testDoc([]spec.InputRecord{
		{ID: "bad", Data: backend.Input{"body": "no text key"}},
	}, []spec.VariationSpec{
		{Type: "add_typos", Domain: vary.DomainInput, Params: map[string]any{"seed": 1}},
	})

	_, err := Materialize(doc, backend.Config{}, vary.NewRegistry())
	var merr *MaterializationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ErrCodeTransformFailed, merr.Code)
	assert.Contains(t, merr.Message, "bad")
}

func TestMaterialize_SlicesDoNotAliasBaseConfig(t *testing.T) {
	base := backend.Config{Function: backend.FunctionConfig{"nested": map[string]any{"k": "v"}}}
	doc := testDoc(twoInputs()[:1], []spec.VariationSpec{{Type: vary.TypeNone}})

	slices, err := Materialize(doc, base, vary.NewRegistry())
	require.NoError(t, err)

	slices[0].Function["nested"].(map[string]any)["k"] = "mutated"
	assert.Equal(t, "v", base.Function["nested"].(map[string]any)["k"])
}
