package backend

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMap_DeepCopiesNestedStructures(t *testing.T) {
	src := map[string]any{
		"scalar": "v",
		"nested": map[string]any{"k": 1},
		"list":   []any{map[string]any{"x": "y"}},
	}

	dst := CloneMap(src)
	dst["nested"].(map[string]any)["k"] = 2
	dst["list"].([]any)[0].(map[string]any)["x"] = "z"

	assert.Equal(t, 1, src["nested"].(map[string]any)["k"])
	assert.Equal(t, "y", src["list"].([]any)[0].(map[string]any)["x"])
}

func TestCloneMap_NilStaysNil(t *testing.T) {
	assert.Nil(t, CloneMap(nil))
}

func TestConfig_Clone(t *testing.T) {
	cfg := Config{
		Function:    FunctionConfig{"model": "large"},
		Environment: EnvironmentConfig{"region": "eu"},
	}
	clone := cfg.Clone()
	clone.Function["model"] = "small"

	assert.Equal(t, "large", cfg.Function["model"])
}

func TestRegistry_ResolveNoop(t *testing.T) {
	b, err := NewRegistry().Resolve("noop", Config{})
	require.NoError(t, err)
	assert.Equal(t, "noop", b.Name())
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	_, err := NewRegistry().Resolve("quantum", Config{})
	require.Error(t, err)
}

func TestRegistry_Names(t *testing.T) {
	names := NewRegistry().Names()
	assert.Contains(t, names, "noop")
	assert.Contains(t, names, "command")
}

func TestNoop_EchoesInput(t *testing.T) {
	n := NewNoop(Config{})
	ctx := context.Background()

	env, err := n.UpdateEnvironment(ctx, EnvironmentConfig{"region": "eu"})
	require.NoError(t, err)
	assert.Equal(t, "eu", env["region"])

	out, err := n.Compute(ctx, Input{"text": "hello"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out["text"])
}

func TestConfigFromEnv_JSONObjects(t *testing.T) {
	t.Setenv(EnvFunction, `{"model": "small", "temp": 0.2}`)
	t.Setenv(EnvEnvironment, `{"region": "eu"}`)

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "small", cfg.Function["model"])
	assert.Equal(t, 0.2, cfg.Function["temp"])
	assert.Equal(t, "eu", cfg.Environment["region"])
}

func TestConfigFromEnv_KeyedOverrides(t *testing.T) {
	t.Setenv(EnvEnvironment, `{"region": "eu"}`)
	t.Setenv("VIGIL_ENV_REGION", "us")
	t.Setenv("VIGIL_ENV_RETRIES", "3")
	t.Setenv("VIGIL_ENV_LABELS", `["a", "b"]`)

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "us", cfg.Environment["region"])
	assert.Equal(t, float64(3), cfg.Environment["retries"])
	assert.Equal(t, []any{"a", "b"}, cfg.Environment["labels"])
}

func TestConfigFromEnv_BadJSON(t *testing.T) {
	t.Setenv(EnvFunction, `{not json`)
	_, err := ConfigFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvFunction)
}

func TestNewCommand_RequiresCommandKey(t *testing.T) {
	_, err := NewCommand(Config{Environment: EnvironmentConfig{}})
	require.Error(t, err)
}

func TestToArgv(t *testing.T) {
	argv, err := toArgv("python3 harness.py")
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "harness.py"}, argv)

	argv, err = toArgv([]any{"python3", "harness.py", "--flag"})
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "harness.py", "--flag"}, argv)

	_, err = toArgv("")
	require.Error(t, err)

	_, err = toArgv(42)
	require.Error(t, err)
}

func TestCommand_ComputeRoundTrip(t *testing.T) {
	// cat echoes the request back, which is itself a valid JSON object
	b, err := NewCommand(Config{Environment: EnvironmentConfig{"command": "cat"}})
	require.NoError(t, err)

	out, err := b.Compute(context.Background(), Input{"text": "hi"}, FunctionConfig{"model": "m"})
	require.NoError(t, err)

	assert.Equal(t, "compute", out["op"])
	assert.Equal(t, "hi", out["input"].(map[string]any)["text"])
}

func TestCommand_ConcurrentCompute(t *testing.T) {
	// worker-pool runs issue Compute calls in parallel against one backend
	b, err := NewCommand(Config{Environment: EnvironmentConfig{"command": "cat"}})
	require.NoError(t, err)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			out, err := b.Compute(context.Background(), Input{"n": n}, nil)
			if err == nil && out["op"] != "compute" {
				err = fmt.Errorf("unexpected op %v", out["op"])
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	b.(*Command).TakeTrace()
}

func TestCommand_FailureSurfacesStderr(t *testing.T) {
	b, err := NewCommand(Config{Environment: EnvironmentConfig{"command": []any{"sh", "-c", "echo nope >&2; exit 3"}}})
	require.NoError(t, err)

	_, err = b.Compute(context.Background(), Input{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	trace := b.(*Command).TakeTrace()
	require.NotNil(t, trace)
	assert.Equal(t, "nope", trace["stderr"])
}
