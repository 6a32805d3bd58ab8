package backend

import (
	"encoding/json"
	"os"
	"strings"
)

// Environment variable names recognized for base backend configuration.
// Values are JSON-decoded when possible; otherwise taken as plain strings.
const (
	EnvFunction    = "VIGIL_FUNCTION"
	EnvEnvironment = "VIGIL_ENVIRONMENT"
	envKeyPrefix   = "VIGIL_ENV_"
)

// ConfigFromEnv builds the base backend configuration from the process
// environment. VIGIL_FUNCTION and VIGIL_ENVIRONMENT hold whole JSON objects;
// individual VIGIL_ENV_<KEY> variables merge into the environment
// configuration under the lower-cased key. The backend itself is configured
// this way rather than in the specification: a spec declares only inputs,
// variations and checks.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Function:    FunctionConfig{},
		Environment: EnvironmentConfig{},
	}

	if raw, ok := os.LookupEnv(EnvFunction); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.Function); err != nil {
			return Config{}, envDecodeError(EnvFunction, err)
		}
	}

	if raw, ok := os.LookupEnv(EnvEnvironment); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.Environment); err != nil {
			return Config{}, envDecodeError(EnvEnvironment, err)
		}
	}

	for _, entry := range os.Environ() {
		name, value, found := strings.Cut(entry, "=")
		if !found || !strings.HasPrefix(name, envKeyPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, envKeyPrefix))
		if key == "" {
			continue
		}
		cfg.Environment[key] = decodeEnvValue(value)
	}

	return cfg, nil
}

// decodeEnvValue interprets an environment variable value as JSON when it
// parses, falling back to the raw string.
func decodeEnvValue(value string) any {
	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err == nil {
		return decoded
	}
	return value
}

type envError struct {
	name string
	err  error
}

func envDecodeError(name string, err error) error {
	return &envError{name: name, err: err}
}

func (e *envError) Error() string {
	return "invalid JSON in " + e.name + ": " + e.err.Error()
}

func (e *envError) Unwrap() error { return e.err }
