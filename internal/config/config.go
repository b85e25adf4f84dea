// Package config loads and validates host-process configuration from
// environment variables. The core engine itself takes no environment
// variables (spec §6.2); this package exists for embedders such as
// cmd/anamnesisctl that want one process-wide place to set the log level
// and point at snapshot-signing key material.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config holds host-process configuration for the engine.
type Config struct {
	// LogLevel controls the default slog handler level: "debug", "info",
	// "warn", or "error".
	LogLevel string

	// ResolveCacheSize is parsed and validated (must not be negative) but
	// nothing in this module reads it: the per-state trait cache has no
	// size limit and never evicts entries.
	ResolveCacheSize int

	// TelemetryEnabled is parsed (default false) but nothing in this module
	// reads it: the engine always records its OpenTelemetry metrics and
	// spans to the global providers, which are no-ops unless the embedding
	// process registers real ones.
	TelemetryEnabled bool

	// SnapshotSigningKeyPath and SnapshotVerifyKeyPath point at PEM-encoded
	// Ed25519 key material used by internal/integrity's optional signed
	// snapshot export. Both empty disables signing.
	SnapshotSigningKeyPath string
	SnapshotVerifyKeyPath  string
}

// Load reads configuration from environment variables with sensible
// defaults. Returns an error if any environment variable contains an
// unparseable value; missing variables use defaults.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		LogLevel:               envStr("ANAMNESIS_LOG_LEVEL", "info"),
		SnapshotSigningKeyPath: envStr("ANAMNESIS_SNAPSHOT_SIGNING_KEY", ""),
		SnapshotVerifyKeyPath:  envStr("ANAMNESIS_SNAPSHOT_VERIFY_KEY", ""),
	}

	cfg.ResolveCacheSize, errs = collectInt(errs, "ANAMNESIS_RESOLVE_CACHE_SIZE", 10_000)
	cfg.TelemetryEnabled, errs = collectBool(errs, "ANAMNESIS_TELEMETRY_ENABLED", false)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: invalid environment variables: %w", errors.Join(errs...))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// collectInt parses an int env var, appending any error to the accumulator.
func collectInt(errs []error, key string, fallback int) (int, []error) {
	v, err := envInt(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectBool parses a bool env var, appending any error to the accumulator.
func collectBool(errs []error, key string, fallback bool) (bool, []error) {
	v, err := envBool(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// Validate checks that configuration values are sane.
func (c Config) Validate() error {
	var errs []error

	if c.ResolveCacheSize < 0 {
		errs = append(errs, errors.New("config: ANAMNESIS_RESOLVE_CACHE_SIZE must not be negative"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: ANAMNESIS_LOG_LEVEL %q is not one of debug|info|warn|error", c.LogLevel))
	}
	if (c.SnapshotSigningKeyPath == "") != (c.SnapshotVerifyKeyPath == "") {
		errs = append(errs, errors.New("config: ANAMNESIS_SNAPSHOT_SIGNING_KEY and ANAMNESIS_SNAPSHOT_VERIFY_KEY must be set together"))
	}

	return errors.Join(errs...)
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}
