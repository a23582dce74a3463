package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateClustering(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.BaseID == "" {
		return errors.New("store.base_id must be set")
	}
	if c.Store.TableID == "" {
		return errors.New("store.table_id must be set")
	}
	if c.Store.InterviewCodeField == "" {
		return errors.New("store.interview_code_field must be set")
	}
	if c.Store.TranscriptField == "" {
		return errors.New("store.transcript_field must be set")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.MaxRetries < 1 {
		return errors.New("matching.max_retries must be at least 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.WatchdogSeconds < 1 {
		return errors.New("workflow.watchdog_seconds must be at least 1")
	}
	if c.Workflow.Workers < 1 {
		return errors.New("workflow.workers must be at least 1")
	}
	return nil
}

func (c *Config) validateClustering() error {
	if c.Clustering.NClusters < 2 {
		return errors.New("clustering.n_clusters must be at least 2")
	}
	switch c.Clustering.ModelType {
	case "gaussian", "dirichlet":
	default:
		return fmt.Errorf("clustering.model_type must be gaussian or dirichlet, got %q", c.Clustering.ModelType)
	}
	switch c.Clustering.CovarianceType {
	case "full", "tied", "diag", "spherical":
	default:
		return fmt.Errorf("clustering.covariance_type must be one of full, tied, diag, spherical, got %q", c.Clustering.CovarianceType)
	}
	if c.Clustering.ModelType != "dirichlet" && c.Clustering.ConcentrationPrior != 0 {
		return errors.New("clustering.concentration_prior only applies when model_type is dirichlet")
	}
	if c.Clustering.ConcentrationPrior < 0 {
		return errors.New("clustering.concentration_prior must be positive")
	}
	return nil
}
