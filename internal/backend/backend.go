// Package backend defines the capability contract between the vigil engine
// and a system under test.
//
// A backend exposes exactly two operations: UpdateEnvironment applies an
// environment configuration to the underlying system (resolving derived
// values such as project identifiers), and Compute executes the system on a
// single input under a function configuration. The engine assumes nothing
// about the payload shapes beyond them being mappings.
//
// Backends are registered by name in a Registry and resolved when a run is
// configured. Asynchronous systems (submit-then-poll job semantics) must
// encapsulate their polling loop inside Compute so the engine sees a single
// blocking call.
package backend

import "context"

// Input is the opaque input payload presented to a backend.
type Input = map[string]any

// Output is the opaque output payload produced by a backend.
type Output = map[string]any

// FunctionConfig configures task-level behaviour, passed into every Compute call.
type FunctionConfig = map[string]any

// EnvironmentConfig configures system-level state, applied via UpdateEnvironment.
type EnvironmentConfig = map[string]any

// Backend wraps a concrete system under test.
//
// Implementations must treat all payloads as immutable for the duration of a
// call. Compute must block until the underlying system has produced its
// observable output, regardless of how the system internally schedules work.
type Backend interface {
	// Name identifies the backend in reports and logs.
	Name() string

	// UpdateEnvironment applies the given environment configuration to the
	// underlying system and returns the effective (resolved) configuration.
	// It must be safe to call repeatedly with the same configuration.
	UpdateEnvironment(ctx context.Context, env EnvironmentConfig) (EnvironmentConfig, error)

	// Compute executes the underlying system for a single input under the
	// given function configuration.
	Compute(ctx context.Context, input Input, fn FunctionConfig) (Output, error)
}

// Tracer is an optional interface backends may implement to expose raw
// intermediate output from the most recent Compute call. The engine collects
// the trace only when tracing is enabled for the run; trace artifacts are
// additive and never affect check evaluation.
type Tracer interface {
	// TakeTrace returns the trace captured during the last Compute call and
	// clears it. Returns nil when no trace is available.
	TakeTrace() map[string]any
}

// Config is the declared base configuration for a backend: the reference
// point every slice's resolved configuration is derived from.
type Config struct {
	Function    FunctionConfig
	Environment EnvironmentConfig
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	return Config{
		Function:    CloneMap(c.Function),
		Environment: CloneMap(c.Environment),
	}
}

// CloneMap deep-copies a payload mapping. Nested maps and slices are copied;
// scalar values are shared (they are immutable by convention).
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return val
	}
}
