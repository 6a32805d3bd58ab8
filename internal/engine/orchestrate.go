package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/vigil-run/vigil/internal/backend"
	"github.com/vigil-run/vigil/internal/run"
)

// execute runs every slice and returns exactly one record per slice, in slice
// order. Failures are captured as data on the record; nothing a single slice
// does can prevent the remaining slices from executing.
func (e *Engine) execute(ctx context.Context, slices []*run.Slice) []*run.Record {
	records := make([]*run.Record, len(slices))

	if e.workers <= 1 {
		for i, s := range slices {
			records[i] = e.executeSlice(ctx, s)
		}
		return records
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				records[i] = e.executeSlice(ctx, slices[i])
			}
		}()
	}
	for i := range slices {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return records
}

// executeSlice produces the terminal record for one slice. A declared
// reference output short-circuits execution entirely; run-level cancellation
// is captured as a failure so the record count invariant holds.
func (e *Engine) executeSlice(ctx context.Context, s *run.Slice) *run.Record {
	rec := &run.Record{Slice: s, StartedAt: e.now()}
	defer func() { rec.FinishedAt = e.now() }()

	if s.Reference != nil {
		rec.Output = backend.CloneMap(s.Reference)
		rec.Source = run.SourceProvided
		e.logger.Debug("using declared reference output", "slice", s.ID())
		return rec
	}

	if err := ctx.Err(); err != nil {
		rec.Failure = &run.Failure{Kind: run.FailureCancelled, Message: err.Error()}
		return rec
	}

	e.runSlice(ctx, s, rec)

	if rec.Failed() {
		e.logger.Warn("slice failed",
			"slice", s.ID(),
			"kind", rec.Failure.Kind,
			"error", rec.Failure.Message,
		)
	} else {
		e.logger.Debug("slice executed", "slice", s.ID())
	}
	return rec
}

// runSlice is the acquire, compute, release cycle for one slice.
//
// Environment isolation: slices that keep the base environment share it under
// a read lock. Slices that mutate it hold the write lock for their whole
// cycle, so a compute never observes another slice's environment. The
// environment is restored to base unconditionally, including on compute
// failure and on cancellation (restore runs on a cancellation-proof context).
func (e *Engine) runSlice(ctx context.Context, s *run.Slice, rec *run.Record) {
	defer func() {
		if r := recover(); r != nil {
			if rec.Failure == nil {
				rec.Failure = &run.Failure{Kind: run.FailurePanic, Message: fmt.Sprintf("%v", r)}
			}
			rec.Output = nil
			e.logger.Error("backend panicked", "slice", s.ID(), "panic", r)
		}
	}()

	if reflect.DeepEqual(s.Environment, e.base.Environment) {
		e.envMu.RLock()
		defer e.envMu.RUnlock()
		rec.ResolvedEnvironment = backend.CloneMap(e.baseResolved)
		e.compute(ctx, s, rec)
		return
	}

	e.envMu.Lock()
	defer e.envMu.Unlock()

	resolved, err := e.backend.UpdateEnvironment(ctx, backend.CloneMap(s.Environment))

	// Even a failed acquire may have partially applied; always restore.
	defer func() {
		restoreCtx := context.WithoutCancel(ctx)
		if _, rerr := e.backend.UpdateEnvironment(restoreCtx, backend.CloneMap(e.base.Environment)); rerr != nil {
			e.logger.Error("environment restore failed", "slice", s.ID(), "error", rerr)
		}
	}()

	if err != nil {
		rec.Failure = &run.Failure{Kind: run.FailureEnvironment, Message: err.Error()}
		return
	}
	rec.ResolvedEnvironment = resolved

	e.compute(ctx, s, rec)
}

func (e *Engine) compute(ctx context.Context, s *run.Slice, rec *run.Record) {
	out, err := e.backend.Compute(ctx, backend.CloneMap(s.Input), backend.CloneMap(s.Function))
	if err != nil {
		kind := run.FailureCompute
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			kind = run.FailureCancelled
		}
		rec.Failure = &run.Failure{Kind: kind, Message: err.Error()}
	} else {
		rec.Output = out
		rec.Source = run.SourceExecuted
	}

	if e.tracing {
		if tr, ok := e.backend.(backend.Tracer); ok {
			rec.Trace = tr.TakeTrace()
		}
	}
}
