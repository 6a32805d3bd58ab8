// Package engine materializes specs into slices, orchestrates backend
// execution, and drives check evaluation into a report.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vigil-run/vigil/internal/backend"
	"github.com/vigil-run/vigil/internal/report"
	"github.com/vigil-run/vigil/internal/run"
	"github.com/vigil-run/vigil/internal/spec"
	"github.com/vigil-run/vigil/internal/vary"
)

// Engine executes one run: materialize, execute, evaluate, assemble.
//
// Thread-safety model:
//   - Run(): one run at a time per engine; concurrent runs against the same
//     backend would share a live environment
//   - worker goroutines coordinate environment access through envMu; see
//     orchestrate.go
//
// With WithWorkers(n > 1) the backend's Compute must be safe to call from
// multiple goroutines. Environment-mutating slices are serialized regardless.
type Engine struct {
	backend backend.Backend
	base    backend.Config
	varyReg *vary.Registry

	logger  *slog.Logger
	now     func() time.Time
	workers int
	tracing bool

	envMu        sync.RWMutex
	baseResolved backend.EnvironmentConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the slice worker pool size. Default is 1 (sequential).
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithTracing captures backend trace artifacts onto execution records when
// the backend supports it.
func WithTracing() Option {
	return func(e *Engine) { e.tracing = true }
}

// WithLogger sets the engine logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the wall clock. Used by tests for deterministic
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine bound to a backend and its base configuration.
func New(b backend.Backend, base backend.Config, varyReg *vary.Registry, opts ...Option) *Engine {
	e := &Engine{
		backend: b,
		base:    base.Clone(),
		varyReg: varyReg,
		logger:  slog.Default(),
		now:     time.Now,
		workers: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the document end to end and returns the assembled report.
//
// Materialization errors abort before any backend call. Once execution
// starts, per-slice failures are captured as data and the run always reaches
// evaluation and report assembly, cancellation included: remaining slices
// record a cancelled failure and the report still gets written by the caller.
func (e *Engine) Run(ctx context.Context, doc *spec.Document) (*report.Report, error) {
	started := e.now()

	slices, err := Materialize(doc, e.base, e.varyReg)
	if err != nil {
		return nil, err
	}
	e.logger.Info("run materialized",
		"spec", doc.Path,
		"inputs", len(doc.Inputs),
		"variations", len(doc.Variations),
		"slices", len(slices),
	)

	resolved, err := e.backend.UpdateEnvironment(ctx, backend.CloneMap(e.base.Environment))
	if err != nil {
		return nil, fmt.Errorf("apply base environment: %w", err)
	}
	e.baseResolved = resolved

	records := e.execute(ctx, slices)
	set := run.NewSet(records)
	results := Evaluate(doc.Checks, set, e.logger)

	rep := report.Assemble(report.Meta{
		RunID:      uuid.NewString(),
		SpecPath:   doc.Path,
		Title:      doc.Title,
		Hypothesis: doc.Hypothesis,
		Backend:    e.backend.Name(),
		StartedAt:  started,
		FinishedAt: e.now(),
	}, e.base, set, results)

	e.logger.Info("run complete",
		"run_id", rep.Meta.RunID,
		"verdict", rep.Verdict,
		"slices", len(records),
		"results", len(results),
	)
	return rep, nil
}
