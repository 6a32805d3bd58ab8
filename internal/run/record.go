package run

import (
	"time"

	"github.com/vigil-run/vigil/internal/backend"
)

// Failure kinds recorded on an execution record. They identify which backend
// operation raised, or that the orchestrator intervened.
const (
	FailureEnvironment = "environment" // UpdateEnvironment raised
	FailureCompute     = "compute"     // Compute raised
	FailureCancelled   = "cancelled"   // run-level cancellation before execution
	FailurePanic       = "panic"       // backend panicked
)

// Output sources recorded on an execution record.
const (
	SourceExecuted = "executed" // output produced by the backend
	SourceProvided = "provided" // output declared on the input record
)

// Failure describes a captured backend failure. Failures are data, not
// errors: one slice failing never prevents another slice from executing.
type Failure struct {
	Kind    string
	Message string
}

func (f *Failure) String() string {
	return f.Kind + ": " + f.Message
}

// Record is the captured outcome of executing one slice. The orchestrator
// creates exactly one record per slice; records are terminal and a slice is
// never re-executed within a run.
type Record struct {
	Slice *Slice

	// Output is the observed backend output. Nil when Failure is set.
	Output backend.Output

	// Failure is the captured backend failure. Nil on success.
	Failure *Failure

	// ResolvedEnvironment is the effective environment configuration returned
	// by UpdateEnvironment for this slice.
	ResolvedEnvironment backend.EnvironmentConfig

	// Source distinguishes executed outputs from declared reference outputs.
	Source string

	StartedAt  time.Time
	FinishedAt time.Time

	// Trace holds the raw backend trace artifact when tracing is enabled.
	// Additive: never consulted by check evaluation.
	Trace map[string]any
}

// SliceID returns the identifier of the executed slice.
func (r *Record) SliceID() string { return r.Slice.ID() }

// InputID returns the input identifier of the executed slice.
func (r *Record) InputID() string { return r.Slice.InputID }

// Failed reports whether the slice failed to execute.
func (r *Record) Failed() bool { return r.Failure != nil }
