// Package ingest reads flight-price CSV files into staged records
package ingest

import "errors"

// Static errors for configuration validation
var (
	ErrCSVPathRequired = errors.New("csv path is required")
)

// Config contains CSV source settings
type Config struct {
	CSVPath string `yaml:"csvPath"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CSVPath == "" {
		return ErrCSVPathRequired
	}

	return nil
}
