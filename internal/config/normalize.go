package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizeMatching()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	c.normalizeClustering()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LedgerDir) == "" {
		c.Paths.LedgerDir = defaultLedgerDir
	}
	if c.Paths.LedgerDir, err = expandPath(c.Paths.LedgerDir); err != nil {
		return fmt.Errorf("paths.ledger_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() {
	if c.Store.AccessToken == "" {
		if value, ok := os.LookupEnv("INTAKE_ACCESS_TOKEN"); ok {
			c.Store.AccessToken = value
		}
	}
	c.Store.AccessToken = strings.TrimSpace(c.Store.AccessToken)
	c.Store.BaseURL = strings.TrimSpace(c.Store.BaseURL)
	if c.Store.BaseURL == "" {
		c.Store.BaseURL = defaultStoreBaseURL
	}
	c.Store.BaseID = strings.TrimSpace(c.Store.BaseID)
	c.Store.TableID = strings.TrimSpace(c.Store.TableID)
	c.Store.ViewID = strings.TrimSpace(c.Store.ViewID)
	c.Store.InterviewCodeField = strings.TrimSpace(c.Store.InterviewCodeField)
	c.Store.TranscriptField = strings.TrimSpace(c.Store.TranscriptField)
	c.Store.ProjectField = strings.TrimSpace(c.Store.ProjectField)
	if c.Store.RequestTimeout <= 0 {
		c.Store.RequestTimeout = defaultStoreTimeout
	}
}

func (c *Config) normalizeMatching() {
	types := make([]string, 0, len(c.Matching.ParticipantTypes))
	seen := make(map[string]struct{}, len(c.Matching.ParticipantTypes))
	for _, pt := range c.Matching.ParticipantTypes {
		normalized := strings.ToLower(strings.TrimSpace(pt))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		types = append(types, normalized)
	}
	if len(types) == 0 {
		types = append([]string(nil), defaultParticipantTypes...)
	}
	c.Matching.ParticipantTypes = types
	if c.Matching.MaxRetries <= 0 {
		c.Matching.MaxRetries = defaultMaxRetries
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.WatchdogSeconds <= 0 {
		c.Workflow.WatchdogSeconds = defaultWatchdogSeconds
	}
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeClustering() {
	c.Clustering.ModelType = strings.ToLower(strings.TrimSpace(c.Clustering.ModelType))
	if c.Clustering.ModelType == "" {
		c.Clustering.ModelType = defaultClusterModel
	}
	c.Clustering.CovarianceType = strings.ToLower(strings.TrimSpace(c.Clustering.CovarianceType))
	if c.Clustering.CovarianceType == "" {
		c.Clustering.CovarianceType = defaultClusterCovariance
	}
	if c.Clustering.NClusters == 0 {
		c.Clustering.NClusters = defaultClusterCount
	}
	if c.Clustering.MaxIterations <= 0 {
		c.Clustering.MaxIterations = defaultClusterIterations
	}
}
