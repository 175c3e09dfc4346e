// Package monitor implements the pipeline health-monitoring subsystem:
// component checks, freshness tracking, anomaly detection, reporting,
// and the HTTP API that exposes them
package monitor

import (
	"errors"
	"time"
)

// Static errors for configuration validation
var (
	ErrInvalidFreshness = errors.New("freshness thresholds must be positive and ordered")
	ErrInvalidSigma     = errors.New("anomaly sigma must be positive")
)

// Config contains monitor settings
type Config struct {
	Enabled           bool          `yaml:"enabled" default:"true"`
	Addr              string        `yaml:"addr" default:":8080"`
	FreshnessHealthy  time.Duration `yaml:"freshnessHealthy" default:"24h"`
	FreshnessWarning  time.Duration `yaml:"freshnessWarning" default:"48h"`
	AnomalySigma      float64       `yaml:"anomalySigma" default:"3.0"`
	PerformanceWindow time.Duration `yaml:"performanceWindow" default:"168h"`
	SnapshotTTL       time.Duration `yaml:"snapshotTTL" default:"10m"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.FreshnessHealthy <= 0 || c.FreshnessWarning <= c.FreshnessHealthy {
		return ErrInvalidFreshness
	}

	if c.AnomalySigma <= 0 {
		return ErrInvalidSigma
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}

	if c.FreshnessHealthy == 0 {
		c.FreshnessHealthy = 24 * time.Hour
	}

	if c.FreshnessWarning == 0 {
		c.FreshnessWarning = 48 * time.Hour
	}

	if c.AnomalySigma == 0 {
		c.AnomalySigma = 3.0
	}

	if c.PerformanceWindow == 0 {
		c.PerformanceWindow = 7 * 24 * time.Hour
	}

	if c.SnapshotTTL == 0 {
		c.SnapshotTTL = 10 * time.Minute
	}
}
