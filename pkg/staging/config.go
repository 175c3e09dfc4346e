// Package staging provides the ClickHouse staging store for ingested flight records
package staging

import (
	"errors"
	"time"
)

// Static errors for configuration validation
var (
	ErrAddrRequired = errors.New("clickhouse address is required")
)

// Config contains ClickHouse connection settings for the staging store
type Config struct {
	Addr          string        `yaml:"addr" validate:"required"`
	Database      string        `yaml:"database"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Table         string        `yaml:"table"`
	QualityTable  string        `yaml:"qualityTable"`
	QueryTimeout  time.Duration `yaml:"queryTimeout"`
	InsertTimeout time.Duration `yaml:"insertTimeout"`
	Debug         bool          `yaml:"debug"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrAddrRequired
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Database == "" {
		c.Database = "fareflow"
	}

	if c.Username == "" {
		c.Username = "default"
	}

	if c.Table == "" {
		c.Table = "staging_flights"
	}

	if c.QualityTable == "" {
		c.QualityTable = "data_quality_log"
	}

	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}

	if c.InsertTimeout == 0 {
		c.InsertTimeout = 5 * time.Minute
	}
}
