package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-run/vigil/internal/report"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testReport(runID, specPath, verdict string, started time.Time) *report.Report {
	return &report.Report{
		Meta: report.Meta{
			RunID:      runID,
			SpecPath:   specPath,
			Title:      "Drift probe",
			Backend:    "noop",
			StartedAt:  started,
			FinishedAt: started.Add(5 * time.Second),
		},
		Verdict: verdict,
		Summary: report.Summary{Slices: 4, Failures: 1},
	}
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestRecordRun_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	rep := testReport("run-0001", "specs/probe.yml", "ERROR", started)
	require.NoError(t, store.RecordRun(ctx, rep, "specs/probe-20240101-120000.report.yml"))

	entries, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "run-0001", e.RunID)
	assert.Equal(t, "specs/probe.yml", e.SpecPath)
	assert.Equal(t, "Drift probe", e.Title)
	assert.Equal(t, "noop", e.Backend)
	assert.Equal(t, "ERROR", e.Verdict)
	assert.Equal(t, 4, e.Slices)
	assert.Equal(t, 1, e.Failures)
	assert.Equal(t, "specs/probe-20240101-120000.report.yml", e.ReportPath)
	assert.True(t, e.StartedAt.Equal(started))
	assert.True(t, e.FinishedAt.Equal(started.Add(5*time.Second)))
}

func TestRecordRun_DuplicateRunIDIgnored(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	rep := testReport("run-0001", "specs/probe.yml", "PASS", started)
	require.NoError(t, store.RecordRun(ctx, rep, "a.report.yml"))

	// a second record under the same run ID never overwrites the first
	rep.Verdict = "ERROR"
	require.NoError(t, store.RecordRun(ctx, rep, "b.report.yml"))

	entries, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "PASS", entries[0].Verdict)
	assert.Equal(t, "a.report.yml", entries[0].ReportPath)
}

func TestRecentRuns_NewestFirstWithLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rep := testReport(
			fmt.Sprintf("run-%04d", i+1),
			"specs/probe.yml",
			"PASS",
			base.Add(time.Duration(i)*time.Hour),
		)
		require.NoError(t, store.RecordRun(ctx, rep, "r.report.yml"))
	}

	entries, err := store.RecentRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "run-0005", entries[0].RunID)
	assert.Equal(t, "run-0004", entries[1].RunID)
	assert.Equal(t, "run-0003", entries[2].RunID)
}

func TestRunsForSpec_FiltersBySpecPath(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordRun(ctx, testReport("run-a1", "specs/a.yml", "PASS", base), "a1.report.yml"))
	require.NoError(t, store.RecordRun(ctx, testReport("run-b1", "specs/b.yml", "ERROR", base.Add(time.Hour)), "b1.report.yml"))
	require.NoError(t, store.RecordRun(ctx, testReport("run-a2", "specs/a.yml", "WARN", base.Add(2*time.Hour)), "a2.report.yml"))

	entries, err := store.RunsForSpec(ctx, "specs/a.yml", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "run-a2", entries[0].RunID)
	assert.Equal(t, "run-a1", entries[1].RunID)

	empty, err := store.RunsForSpec(ctx, "specs/missing.yml", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
