package testsupport

import (
	"path/filepath"
	"testing"

	"intake/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LedgerDir = filepath.Join(base, "ledger")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Store.AccessToken = "test-token"
	cfg.Store.BaseID = "appTest"
	cfg.Store.TableID = "tblTest"
	cfg.Store.InterviewCodeField = "fldCode"
	cfg.Store.TranscriptField = "fldTranscript"
	cfg.Store.ProjectField = "fldProject"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWatchdogSeconds overrides the stuck-item watchdog delay.
func WithWatchdogSeconds(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.WatchdogSeconds = seconds
	}
}

// WithWorkers overrides the worker pool size.
func WithWorkers(workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.Workers = workers
	}
}
