package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LedgerDir string `toml:"ledger_dir"`
	LogDir    string `toml:"log_dir"`
}

// Store contains connection settings for the remote interview record store.
type Store struct {
	BaseURL            string `toml:"base_url"`
	AccessToken        string `toml:"access_token"`
	BaseID             string `toml:"base_id"`
	TableID            string `toml:"table_id"`
	ViewID             string `toml:"view_id"`
	InterviewCodeField string `toml:"interview_code_field"`
	TranscriptField    string `toml:"transcript_field"`
	ProjectField       string `toml:"project_field"`
	RequestTimeout     int    `toml:"request_timeout"`
}

// Matching contains settings for transcript-to-record matching.
type Matching struct {
	ParticipantTypes []string `toml:"participant_types"`
	MaxRetries       int      `toml:"max_retries"`
}

// Workflow contains timing and concurrency settings for batch processing.
type Workflow struct {
	WatchdogSeconds int `toml:"watchdog_seconds"`
	Workers         int `toml:"workers"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Clustering contains the configuration surface for the sibling survey
// clustering tool. It is validated here so both tools can share one config
// file; the clustering pipeline itself lives elsewhere.
type Clustering struct {
	NClusters          int     `toml:"n_clusters"`
	MaxIterations      int     `toml:"max_iterations"`
	ModelType          string  `toml:"model_type"`
	CovarianceType     string  `toml:"covariance_type"`
	ConcentrationPrior float64 `toml:"concentration_prior"`
}

// Config encapsulates all configuration values for intake.
//
// Configuration sections by subsystem:
//   - Paths: ledger and log directories
//   - Store: remote record store connection and field identifiers
//   - Matching: participant-type tokens and retry bounds
//   - Workflow: watchdog timeout and worker pool size
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//   - Clustering: survey clustering knobs (validated here, consumed elsewhere)
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	Matching      Matching      `toml:"matching"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Clustering    Clustering    `toml:"clustering"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/intake/config.toml")
}

// Sample returns the embedded sample configuration file contents.
func Sample() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// config file actually existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// EnsureDirectories creates the directories the tool writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LedgerDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", trimmed, err)
	}
	return abs, nil
}
