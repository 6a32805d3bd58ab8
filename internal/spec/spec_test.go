package spec

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-run/vigil/internal/check"
	"github.com/vigil-run/vigil/internal/vary"
)

func writeSpec(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadSpec(t *testing.T, content string) (*Document, error) {
	t.Helper()
	path := writeSpec(t, "spec.yml", content)
	return Load(path, vary.NewRegistry(), check.NewRegistry())
}

const validSpec = `
title: Typo robustness
hypothesis: Classification is stable under light typos.
inputs:
  - id: ham
    text: "Lunch at noon?"
  - id: spam
    data:
      text: "You WON a prize, click now!"
    reference:
      label: spam
variations:
  - none
  - type: add_typos
    seed: 7
checks:
  - matches_baseline
  - type: labels_agree
    warn_threshold: 0.5
`

func TestLoad_ValidSpec(t *testing.T) {
	doc, err := loadSpec(t, validSpec)
	require.NoError(t, err)

	assert.Equal(t, "Typo robustness", doc.Title)
	assert.Equal(t, "Classification is stable under light typos.", doc.Hypothesis)

	require.Len(t, doc.Inputs, 2)
	assert.Equal(t, "ham", doc.Inputs[0].ID)
	assert.Equal(t, "Lunch at noon?", doc.Inputs[0].Data["text"])
	assert.Nil(t, doc.Inputs[0].Reference)
	assert.Equal(t, map[string]any{"label": "spam"}, map[string]any(doc.Inputs[1].Reference))

	require.Len(t, doc.Variations, 2)
	assert.True(t, doc.Variations[0].IsNone())
	assert.Equal(t, "add_typos", doc.Variations[1].Type)
	assert.Equal(t, vary.DomainInput, doc.Variations[1].Domain)

	require.Len(t, doc.Checks, 2)
	assert.Equal(t, "matches_baseline", doc.Checks[0].Name)
	assert.Equal(t, check.IntentReference, doc.Checks[0].Intent)
	assert.Equal(t, "labels_agree", doc.Checks[1].Name)
}

func TestLoad_ScalarInputWrapsUnderValue(t *testing.T) {
	doc, err := loadSpec(t, `
hypothesis: h
inputs:
  - "just a string"
checks:
  - summary
`)
	require.NoError(t, err)
	require.Len(t, doc.Inputs, 1)
	assert.Equal(t, "0", doc.Inputs[0].ID)
	assert.Equal(t, "just a string", doc.Inputs[0].Data["value"])
}

func TestLoad_OmittedVariationsMeansBaselineOnly(t *testing.T) {
	doc, err := loadSpec(t, `
hypothesis: h
inputs:
  - id: a
    text: hello
checks:
  - summary
`)
	require.NoError(t, err)
	require.Len(t, doc.Variations, 1)
	assert.True(t, doc.Variations[0].IsNone())
}

func TestLoad_DefaultTitleFromStem(t *testing.T) {
	path := writeSpec(t, "drift-probe.yml", `
hypothesis: h
inputs:
  - id: a
    text: x
checks:
  - summary
`)
	doc, err := Load(path, vary.NewRegistry(), check.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "Behavioural verification of drift-probe", doc.Title)
}

func TestLoad_RepeatExpansion(t *testing.T) {
	doc, err := loadSpec(t, `
hypothesis: h
inputs:
  - id: a
    text: x
variations:
  - none
  - type: repeat
    times: 3
    do:
      - type: add_typos
        seed: 1
      - type: perturb_whitespace
checks:
  - summary
`)
	require.NoError(t, err)

	require.Len(t, doc.Variations, 7)
	assert.Equal(t, "none", doc.Variations[0].Type)
	assert.Equal(t, "add_typos", doc.Variations[1].Type)
	assert.Equal(t, "perturb_whitespace", doc.Variations[2].Type)
	assert.Equal(t, "add_typos", doc.Variations[3].Type)
}

func TestLoad_DuplicateInputID(t *testing.T) {
	_, err := loadSpec(t, `
hypothesis: h
inputs:
  - id: a
    text: x
  - id: a
    text: y
checks:
  - summary
`)
	var specErr *Error
	require.ErrorAs(t, err, &specErr)
	assert.Equal(t, ErrCodeBadEntry, specErr.Code)
}

func TestLoad_UnknownVariation(t *testing.T) {
	_, err := loadSpec(t, `
hypothesis: h
inputs:
  - id: a
    text: x
variations:
  - scramble_everything
checks:
  - summary
`)
	var specErr *Error
	require.ErrorAs(t, err, &specErr)
	assert.Equal(t, ErrCodeUnknownVariation, specErr.Code)
}

func TestLoad_UnknownCheck(t *testing.T) {
	_, err := loadSpec(t, `
hypothesis: h
inputs:
  - id: a
    text: x
checks:
  - no_such_check
`)
	var specErr *Error
	require.ErrorAs(t, err, &specErr)
	assert.Equal(t, ErrCodeUnknownCheck, specErr.Code)
}

func TestLoad_BadRepeatTimes(t *testing.T) {
	_, err := loadSpec(t, `
hypothesis: h
inputs:
  - id: a
    text: x
variations:
  - type: repeat
    times: 0
    do:
      - add_typos
checks:
  - summary
`)
	var specErr *Error
	require.ErrorAs(t, err, &specErr)
	assert.Equal(t, ErrCodeBadRepeat, specErr.Code)
}

func TestLoad_MissingHypothesis(t *testing.T) {
	_, err := loadSpec(t, `
inputs:
  - id: a
    text: x
checks:
  - summary
`)
	var specErr *Error
	require.ErrorAs(t, err, &specErr)
}

func TestLoad_UnknownTopLevelKey(t *testing.T) {
	_, err := loadSpec(t, `
hypothesis: h
inputs:
  - id: a
    text: x
checks:
  - summary
extra_section: true
`)
	var specErr *Error
	require.ErrorAs(t, err, &specErr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"), vary.NewRegistry(), check.NewRegistry())
	var specErr *Error
	require.ErrorAs(t, err, &specErr)
	assert.Equal(t, ErrCodeRead, specErr.Code)
}

func TestExpand_FlatListUnchanged(t *testing.T) {
	flat := []VariationSpec{
		{Type: "none"},
		{Type: "add_typos", Params: map[string]any{"seed": 1}},
	}
	out, err := Expand(flat)
	require.NoError(t, err)
	assert.Equal(t, flat, out)

	// idempotent
	again, err := Expand(out)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestExpand_NestedRepeat(t *testing.T) {
	out, err := Expand([]VariationSpec{
		{Type: "repeat", Times: 2, Do: []VariationSpec{
			{Type: "repeat", Times: 2, Do: []VariationSpec{{Type: "add_typos"}}},
			{Type: "perturb_whitespace"},
		}},
	})
	require.NoError(t, err)

	require.Len(t, out, 6)
	assert.Equal(t, "add_typos", out[0].Type)
	assert.Equal(t, "add_typos", out[1].Type)
	assert.Equal(t, "perturb_whitespace", out[2].Type)
	assert.Equal(t, "add_typos", out[3].Type)
}

func TestExpand_EmptyDoRejected(t *testing.T) {
	_, err := Expand([]VariationSpec{{Type: "repeat", Times: 2}})
	var specErr *Error
	require.True(t, errors.As(err, &specErr))
	assert.Equal(t, ErrCodeBadRepeat, specErr.Code)
}

func TestFindSpecs_ExcludesReports(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"alpha.yml",
		"beta.yaml",
		"gamma.json",
		"alpha-20240101-000000.report.yml",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x: 1"), 0o644))
	}

	specs, err := FindSpecs(dir)
	require.NoError(t, err)

	require.Len(t, specs, 3)
	assert.Equal(t, filepath.Join(dir, "alpha.yml"), specs[0])
	assert.Equal(t, filepath.Join(dir, "beta.yaml"), specs[1])
	assert.Equal(t, filepath.Join(dir, "gamma.json"), specs[2])
}

func TestFindReports_MatchesStem(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "alpha.yml")
	for _, name := range []string{
		"alpha.yml",
		"alpha-20240101-000000.report.yml",
		"alpha-20240102-000000.report.yml",
		"beta-20240101-000000.report.yml",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x: 1"), 0o644))
	}

	reports, err := FindReports(specPath)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, rep := range reports {
		assert.Contains(t, rep, "alpha-2024")
	}
}
