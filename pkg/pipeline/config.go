// Package pipeline orchestrates the ETL run: ingestion, validation,
// transformation, and KPI computation
package pipeline

import (
	"errors"

	"github.com/fareflow/fareflow/pkg/fingerprint"
	"github.com/fareflow/fareflow/pkg/incremental"
	"github.com/fareflow/fareflow/pkg/ingest"
)

// Static errors for configuration validation
var (
	ErrInvalidBatchSize = errors.New("batch size must be positive")
	ErrInvalidTopRoutes = errors.New("top routes must be positive")
	// ErrValidationFailed aborts a run whose batch failed quality checks
	ErrValidationFailed = errors.New("data quality validation failed")
)

// IncrementalConfig controls the change-tracking load path
type IncrementalConfig struct {
	Enabled        bool   `yaml:"enabled" default:"true"`
	FullRefreshDay int    `yaml:"fullRefreshDay" default:"0"`
	HashAlgorithm  string `yaml:"hashAlgorithm" default:"md5"`
}

// Config contains pipeline run settings
type Config struct {
	Ingest      ingest.Config     `yaml:"ingest"`
	BatchSize   int               `yaml:"batchSize" default:"1000"`
	TopRoutes   int               `yaml:"topRoutes" default:"10"`
	Incremental IncrementalConfig `yaml:"incremental"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Ingest.Validate(); err != nil {
		return err
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.TopRoutes <= 0 {
		return ErrInvalidTopRoutes
	}

	if c.Incremental.FullRefreshDay < 0 || c.Incremental.FullRefreshDay > 6 {
		return incremental.ErrInvalidFullRefreshDay
	}

	if err := fingerprint.Algorithm(c.Incremental.HashAlgorithm).Validate(); err != nil {
		return err
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 1000
	}

	if c.TopRoutes == 0 {
		c.TopRoutes = 10
	}

	if c.Incremental.HashAlgorithm == "" {
		c.Incremental.HashAlgorithm = string(fingerprint.AlgorithmMD5)
	}
}
