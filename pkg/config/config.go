// Package config aggregates configuration for all fareflow services
package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/fareflow/fareflow/pkg/analytics"
	"github.com/fareflow/fareflow/pkg/monitor"
	"github.com/fareflow/fareflow/pkg/pipeline"
	"github.com/fareflow/fareflow/pkg/redis"
	"github.com/fareflow/fareflow/pkg/scheduler"
	"github.com/fareflow/fareflow/pkg/staging"
)

// Config is the top-level application configuration
type Config struct {
	Logging     string           `yaml:"logging" default:"info"`
	MetricsAddr string           `yaml:"metricsAddr" default:":9090"`
	Staging     staging.Config   `yaml:"staging"`
	Analytics   analytics.Config `yaml:"analytics"`
	Redis       redis.Config     `yaml:"redis"`
	Pipeline    pipeline.Config  `yaml:"pipeline"`
	Scheduler   scheduler.Config `yaml:"scheduler"`
	Monitor     monitor.Config   `yaml:"monitor"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Staging.Validate(); err != nil {
		return fmt.Errorf("staging config: %w", err)
	}

	if err := c.Analytics.Validate(); err != nil {
		return fmt.Errorf("analytics config: %w", err)
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis config: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler config: %w", err)
	}

	if err := c.Monitor.Validate(); err != nil {
		return fmt.Errorf("monitor config: %w", err)
	}

	return nil
}

// SetDefaults sets default values for all sections
func (c *Config) SetDefaults() {
	if c.Logging == "" {
		c.Logging = "info"
	}

	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}

	c.Staging.SetDefaults()
	c.Analytics.SetDefaults()
	c.Pipeline.SetDefaults()
	c.Monitor.SetDefaults()
}

// LoadFromFile reads and validates configuration from a yaml file
func LoadFromFile(file string) (*Config, error) {
	if file == "" {
		file = "config.yaml"
	}

	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(file) //nolint:gosec // User-provided config file path
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
