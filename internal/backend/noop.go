package backend

import "context"

// Noop is a backend that echoes its input as output. It exists for smoke
// runs and harness tests: a run against noop exercises the full
// materialize/execute/evaluate pipeline without an external system.
type Noop struct {
	base Config
}

// NewNoop creates a noop backend with the given base configuration.
func NewNoop(cfg Config) *Noop {
	return &Noop{base: cfg.Clone()}
}

// Name implements Backend.
func (n *Noop) Name() string { return "noop" }

// UpdateEnvironment implements Backend. The configuration is returned
// unchanged; noop has no system state to mutate.
func (n *Noop) UpdateEnvironment(_ context.Context, env EnvironmentConfig) (EnvironmentConfig, error) {
	return CloneMap(env), nil
}

// Compute implements Backend by returning a copy of the input.
func (n *Noop) Compute(_ context.Context, input Input, _ FunctionConfig) (Output, error) {
	return CloneMap(input), nil
}
