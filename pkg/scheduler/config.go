// Package scheduler runs the pipeline and health checks on cron schedules
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrInvalidConcurrency is returned when concurrency is not positive
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
	// ErrInvalidSchedule is returned when a cron expression does not parse
	ErrInvalidSchedule = errors.New("invalid cron schedule")
)

// Config defines scheduler configuration
type Config struct {
	PipelineSchedule string        `yaml:"pipelineSchedule" default:"0 2 * * *"`
	HealthSchedule   string        `yaml:"healthSchedule" default:"@every 15m"`
	Concurrency      int           `yaml:"concurrency" default:"10"`
	TaskTimeout      time.Duration `yaml:"taskTimeout" default:"30m"`
}

// Validate checks if the scheduler configuration is valid
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	if c.PipelineSchedule != "" {
		if _, err := parser.Parse(c.PipelineSchedule); err != nil {
			return fmt.Errorf("%w: pipeline schedule %q: %s", ErrInvalidSchedule, c.PipelineSchedule, err)
		}
	}

	if c.HealthSchedule != "" {
		if _, err := parser.Parse(c.HealthSchedule); err != nil {
			return fmt.Errorf("%w: health schedule %q: %s", ErrInvalidSchedule, c.HealthSchedule, err)
		}
	}

	return nil
}
