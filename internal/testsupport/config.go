// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"faceframe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The worker binary defaults to cat: it reaps cleanly on SIGTERM and echoes
// commands back, which the event decoder discards as diagnostics.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RuntimeDir = filepath.Join(base, "run")
	cfg.Paths.LogDir = filepath.Join(base, "log")
	cfg.Paths.AssetBind = ""
	cfg.Worker.Binary = "cat"
	cfg.Watcher.Enabled = false

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkerBinary overrides the worker binary on the test config.
func WithWorkerBinary(binary string, args ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Worker.Binary = binary
		cfg.Worker.Args = args
	}
}

// WithWatcher enables the folder watcher with the given debounce.
func WithWatcher(debounceSeconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Watcher.Enabled = true
		cfg.Watcher.DebounceSeconds = debounceSeconds
	}
}

// WithAssetBind enables the asset server on the given address.
func WithAssetBind(bind string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.AssetBind = bind
	}
}
