package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-run/vigil/internal/backend"
	"github.com/vigil-run/vigil/internal/check"
	"github.com/vigil-run/vigil/internal/run"
	"github.com/vigil-run/vigil/internal/spec"
)

func testMeta() Meta {
	return Meta{
		RunID:      "run-0001",
		SpecPath:   "testdata/drift-probe.yml",
		Title:      "Drift probe",
		Hypothesis: "Small input edits do not change the output label.",
		Backend:    "noop",
		StartedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC),
	}
}

func testSet() *run.Set {
	base := &run.Record{
		Slice: &run.Slice{
			InputID:       "greeting",
			VariationID:   run.BaselineID,
			VariationType: "none",
			Input:         backend.Input{"text": "hello"},
		},
		Output:              backend.Output{"text": "hello"},
		ResolvedEnvironment: backend.EnvironmentConfig{"region": "eu"},
		Source:              run.SourceExecuted,
		StartedAt:           time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC),
		FinishedAt:          time.Date(2024, 1, 1, 0, 0, 2, 0, time.UTC),
	}
	variant := &run.Record{
		Slice: &run.Slice{
			InputID:       "greeting",
			VariationID:   "add_typos",
			VariationType: "add_typos",
			Label:         "typos",
			Input:         backend.Input{"text": "hxllo"},
		},
		Failure:    &run.Failure{Kind: run.FailureCompute, Message: "backend exited 3\nstderr:\nmodel not found"},
		StartedAt:  time.Date(2024, 1, 1, 0, 0, 3, 0, time.UTC),
		FinishedAt: time.Date(2024, 1, 1, 0, 0, 4, 0, time.UTC),
	}
	return run.NewSet([]*run.Record{base, variant})
}

func testResults() []*check.Result {
	return []*check.Result{
		{
			CheckName: "matches_baseline",
			Scope: check.Scope{
				InputID:  "greeting",
				SliceIDs: []string{"input-greeting-add_typos", "input-greeting-baseline"},
			},
			Status: check.StatusError,
			Fault:  &check.Fault{Code: check.FaultSliceFailed, Message: "slice failed: compute: backend exited 3"},
		},
		{
			CheckName: "fields_present",
			Scope:     check.Scope{SliceIDs: []string{"input-greeting-baseline"}},
			Status:    check.StatusPass,
			Details:   map[string]any{"fields": []any{"text"}},
		},
	}
}

func testBase() backend.Config {
	return backend.Config{
		Function:    backend.FunctionConfig{"model": "probe-1"},
		Environment: backend.EnvironmentConfig{"region": "eu"},
	}
}

func TestAssemble_SummaryAndOrder(t *testing.T) {
	rep := Assemble(testMeta(), testBase(), testSet(), testResults())

	assert.Equal(t, 2, rep.Summary.Slices)
	assert.Equal(t, 1, rep.Summary.Failures)
	assert.Equal(t, map[string]int{"ERROR": 1, "PASS": 1}, rep.Summary.Results)

	require.Len(t, rep.Slices, 2)
	assert.Equal(t, "input-greeting-baseline", rep.Slices[0].ID)
	assert.Equal(t, "input-greeting-add_typos", rep.Slices[1].ID)
	assert.Equal(t, "typos", rep.Slices[1].Label)

	require.Len(t, rep.Records, 2)
	assert.Nil(t, rep.Records[0].Failure)
	require.NotNil(t, rep.Records[1].Failure)
	assert.Equal(t, run.FailureCompute, rep.Records[1].Failure.Kind)

	require.Len(t, rep.Results, 2)
	assert.Equal(t, "matches_baseline", rep.Results[0].Check)
	assert.Equal(t, "ERROR", rep.Results[0].Status)
	require.NotNil(t, rep.Results[0].Fault)
	assert.Equal(t, check.FaultSliceFailed, rep.Results[0].Fault.Code)
}

func TestAssemble_VerdictIsWorstStatus(t *testing.T) {
	rep := Assemble(testMeta(), testBase(), testSet(), testResults())
	assert.Equal(t, "ERROR", rep.Verdict)
}

func TestAssemble_InfoOnlyVerdictIsPass(t *testing.T) {
	results := []*check.Result{
		{CheckName: "summary", Status: check.StatusInfo},
	}
	rep := Assemble(testMeta(), testBase(), testSet(), results)
	assert.Equal(t, "PASS", rep.Verdict)
}

func TestAssemble_NoResultsVerdictIsPass(t *testing.T) {
	rep := Assemble(testMeta(), testBase(), testSet(), nil)
	assert.Equal(t, "PASS", rep.Verdict)
}

func TestTrimPayloads(t *testing.T) {
	rep := Assemble(testMeta(), testBase(), testSet(), testResults())
	rep.TrimPayloads()

	for _, s := range rep.Slices {
		assert.Nil(t, s.Input)
		assert.Nil(t, s.Function)
		assert.Nil(t, s.Environment)
	}
	for _, r := range rep.Records {
		assert.Nil(t, r.Output)
		assert.Nil(t, r.ResolvedEnvironment)
		assert.Nil(t, r.Trace)
	}
	assert.Nil(t, rep.BaseFunction)
	assert.Nil(t, rep.BaseEnvironment)

	// identities, failures and results survive trimming
	assert.Equal(t, "input-greeting-baseline", rep.Slices[0].ID)
	require.NotNil(t, rep.Records[1].Failure)
	assert.Len(t, rep.Results, 2)
	assert.Equal(t, "ERROR", rep.Verdict)
}

func TestWrite_FileNaming(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "drift-probe.yml")
	now := time.Date(2024, 1, 1, 12, 30, 45, 0, time.UTC)

	rep := Assemble(testMeta(), testBase(), testSet(), testResults())
	path, err := Write(rep, specPath, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "drift-probe-20240101-123045.report.yml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "verdict: ERROR")
}

func TestWrite_CollisionGetsOrdinalSuffix(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "drift-probe.yml")
	now := time.Date(2024, 1, 1, 12, 30, 45, 0, time.UTC)
	rep := Assemble(testMeta(), testBase(), testSet(), nil)

	first, err := Write(rep, specPath, now)
	require.NoError(t, err)
	second, err := Write(rep, specPath, now)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Join(dir, "drift-probe-20240101-123045-2.report.yml"), second)
}

func TestWrite_ReportsExcludedFromSpecDiscovery(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "drift-probe.yml")
	require.NoError(t, os.WriteFile(specPath, []byte("title: x\n"), 0o644))

	rep := Assemble(testMeta(), testBase(), testSet(), nil)
	_, err := Write(rep, specPath, time.Date(2024, 1, 1, 12, 30, 45, 0, time.UTC))
	require.NoError(t, err)

	specs, err := spec.FindSpecs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{specPath}, specs)

	reports, err := spec.FindReports(specPath)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}
