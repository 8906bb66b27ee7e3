package testsupport

import (
	"path/filepath"
	"testing"

	"driveline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMaxAttempts overrides the retry attempt cap on the test config.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.MaxAttempts = attempts
	}
}

// WithFanOut overrides the per-item dispatch fan-out on the test config.
func WithFanOut(fanOut int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.FanOut = fanOut
	}
}
