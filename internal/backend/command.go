package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Command is a backend that drives an external system under test through a
// subprocess speaking a JSON request/response protocol.
//
// Each operation spawns one process from the configured command line, writes
// a single JSON request object to its stdin and reads a single JSON response
// object from its stdout:
//
//	{"op": "update_environment", "environment": {...}} -> {...resolved env...}
//	{"op": "compute", "input": {...}, "function": {...}} -> {...output...}
//
// The command line is declared in the base environment configuration under
// the reserved key "command". A non-zero exit status or malformed response
// is surfaced as a compute failure, isolated to the slice being executed.
//
// Command is safe for concurrent use: invocations may run in parallel under
// the engine's worker pool, and the captured stderr is guarded by a mutex.
type Command struct {
	argv []string
	base Config

	mu         sync.Mutex
	lastStderr string // stderr of the most recent invocation, any slice
}

// NewCommand creates a command backend from the base configuration.
func NewCommand(cfg Config) (Backend, error) {
	raw, ok := cfg.Environment["command"]
	if !ok {
		return nil, fmt.Errorf("command backend requires environment key %q", "command")
	}

	argv, err := toArgv(raw)
	if err != nil {
		return nil, fmt.Errorf("command backend: %w", err)
	}

	return &Command{argv: argv, base: cfg.Clone()}, nil
}

// Name implements Backend.
func (c *Command) Name() string { return "command" }

// UpdateEnvironment implements Backend by invoking the subprocess with an
// update_environment request. The subprocess returns the resolved
// environment; the reserved "command" key is passed through untouched.
func (c *Command) UpdateEnvironment(ctx context.Context, env EnvironmentConfig) (EnvironmentConfig, error) {
	req := map[string]any{
		"op":          "update_environment",
		"environment": withoutKey(env, "command"),
	}

	resp, err := c.invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	resolved := CloneMap(resp)
	if cmd, ok := env["command"]; ok {
		resolved["command"] = cmd
	}
	return resolved, nil
}

// Compute implements Backend by invoking the subprocess with a compute request.
func (c *Command) Compute(ctx context.Context, input Input, fn FunctionConfig) (Output, error) {
	req := map[string]any{
		"op":       "compute",
		"input":    input,
		"function": fn,
	}
	return c.invoke(ctx, req)
}

// TakeTrace implements Tracer: the subprocess stderr from the most recent
// invocation is exposed as the raw trace artifact. Attribution is per-backend,
// not per-slice: under a worker pool the captured stderr may belong to another
// slice's invocation.
func (c *Command) TakeTrace() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastStderr == "" {
		return nil
	}
	trace := map[string]any{"stderr": c.lastStderr}
	c.lastStderr = ""
	return trace
}

func (c *Command) invoke(ctx context.Context, req map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	errOut := strings.TrimSpace(stderr.String())

	c.mu.Lock()
	c.lastStderr = errOut
	c.mu.Unlock()

	if runErr != nil {
		return nil, fmt.Errorf("%s: %w (stderr: %s)", c.argv[0], runErr, errOut)
	}

	var resp map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("%s: malformed response: %w", c.argv[0], err)
	}
	return resp, nil
}

func toArgv(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		argv := strings.Fields(v)
		if len(argv) == 0 {
			return nil, fmt.Errorf("empty command line")
		}
		return argv, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty command line")
		}
		argv := make([]string, len(v))
		for i, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("command argv[%d] is %T, want string", i, elem)
			}
			argv[i] = s
		}
		return argv, nil
	default:
		return nil, fmt.Errorf("command must be a string or list of strings, got %T", raw)
	}
}

func withoutKey(m map[string]any, key string) map[string]any {
	out := CloneMap(m)
	delete(out, key)
	return out
}
