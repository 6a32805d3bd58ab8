package testutil

import (
	"context"
	"sync"

	"github.com/vigil-run/vigil/internal/backend"
)

// Call is one recorded backend invocation.
type Call struct {
	Op      string // "update_environment" or "compute"
	Payload map[string]any
}

// ScriptedBackend is an in-memory backend that records every call and lets
// tests script failures. The default behavior echoes the input payload with
// the current environment attached, so drift is introduced only by the
// variations under test.
type ScriptedBackend struct {
	mu    sync.Mutex
	env   backend.EnvironmentConfig
	calls []Call

	// ComputeFunc overrides output computation when set.
	ComputeFunc func(input backend.Input, fn backend.FunctionConfig) (backend.Output, error)

	// EnvFunc overrides environment application when set.
	EnvFunc func(env backend.EnvironmentConfig) (backend.EnvironmentConfig, error)
}

// NewScriptedBackend creates a backend with default echo behavior.
func NewScriptedBackend() *ScriptedBackend {
	return &ScriptedBackend{}
}

func (b *ScriptedBackend) Name() string { return "scripted" }

// UpdateEnvironment records the call and makes env the live environment.
func (b *ScriptedBackend) UpdateEnvironment(_ context.Context, env backend.EnvironmentConfig) (backend.EnvironmentConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, Call{Op: "update_environment", Payload: backend.CloneMap(env)})

	if b.EnvFunc != nil {
		resolved, err := b.EnvFunc(env)
		if err != nil {
			return nil, err
		}
		b.env = resolved
		return backend.CloneMap(resolved), nil
	}
	b.env = backend.CloneMap(env)
	return backend.CloneMap(env), nil
}

// Compute records the call and produces the scripted or echoed output.
func (b *ScriptedBackend) Compute(_ context.Context, input backend.Input, fn backend.FunctionConfig) (backend.Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, Call{Op: "compute", Payload: backend.CloneMap(input)})

	if b.ComputeFunc != nil {
		return b.ComputeFunc(input, fn)
	}
	out := backend.CloneMap(input)
	out["env"] = backend.CloneMap(b.env)
	return out, nil
}

// TakeTrace implements backend.Tracer with the live environment snapshot.
func (b *ScriptedBackend) TakeTrace() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]any{"env": backend.CloneMap(b.env)}
}

// Calls returns the recorded call log in order.
func (b *ScriptedBackend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// Env returns the currently live environment.
func (b *ScriptedBackend) Env() backend.EnvironmentConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return backend.CloneMap(b.env)
}
