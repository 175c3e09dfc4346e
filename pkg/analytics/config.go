// Package analytics provides the PostgreSQL analytics store for transformed
// flight records, KPI tables, and pipeline execution history
package analytics

import (
	"errors"
	"time"
)

// Static errors for configuration validation
var (
	ErrURLRequired = errors.New("analytics database URL is required")
)

// Config contains PostgreSQL connection settings for the analytics store
type Config struct {
	URL             string        `yaml:"url" validate:"required,url"`
	MaxConns        int32         `yaml:"maxConns"`
	MinConns        int32         `yaml:"minConns"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime"`
	QueryTimeout    time.Duration `yaml:"queryTimeout"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrURLRequired
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}

	if c.MinConns == 0 {
		c.MinConns = 2
	}

	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = time.Hour
	}

	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}

	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}
}
