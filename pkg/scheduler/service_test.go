package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fareflow/fareflow/pkg/monitor"
	"github.com/fareflow/fareflow/pkg/pipeline"
	r "github.com/fareflow/fareflow/pkg/redis"
)

type stubRunner struct {
	calls int
}

func (r *stubRunner) Run(_ context.Context) (pipeline.RunResult, error) {
	r.calls++
	return pipeline.RunResult{RunID: "test-run", Status: pipeline.StatusSuccess}, nil
}

type stubChecker struct {
	calls int
}

func (c *stubChecker) Check(_ context.Context) monitor.Snapshot {
	c.calls++
	return monitor.Snapshot{Status: monitor.StateHealthy}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "valid config",
			cfg: Config{
				PipelineSchedule: "0 2 * * *",
				HealthSchedule:   "@every 15m",
				Concurrency:      10,
			},
		},
		{
			name: "valid config with descriptors",
			cfg: Config{
				PipelineSchedule: "@daily",
				HealthSchedule:   "@hourly",
				Concurrency:      1,
			},
		},
		{
			name: "empty schedules are allowed",
			cfg: Config{
				Concurrency: 10,
			},
		},
		{
			name: "zero concurrency",
			cfg: Config{
				PipelineSchedule: "0 2 * * *",
				Concurrency:      0,
			},
			wantErr: ErrInvalidConcurrency,
		},
		{
			name: "bad pipeline schedule",
			cfg: Config{
				PipelineSchedule: "not a cron",
				Concurrency:      10,
			},
			wantErr: ErrInvalidSchedule,
		},
		{
			name: "bad health schedule",
			cfg: Config{
				PipelineSchedule: "0 2 * * *",
				HealthSchedule:   "99 99 * * *",
				Concurrency:      10,
			},
			wantErr: ErrInvalidSchedule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewService(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	redisCfg := &r.Config{Address: "localhost:6379"}

	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: &Config{
				PipelineSchedule: "0 2 * * *",
				HealthSchedule:   "@every 15m",
				Concurrency:      10,
				TaskTimeout:      30 * time.Minute,
			},
		},
		{
			name: "invalid config rejected",
			cfg: &Config{
				PipelineSchedule: "0 2 * * *",
				Concurrency:      -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(log, tt.cfg, redisCfg, &stubRunner{}, &stubChecker{})
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, svc)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestNewServiceQueueNamespacing(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	cfg := &Config{
		PipelineSchedule: "0 2 * * *",
		Concurrency:      10,
		TaskTimeout:      30 * time.Minute,
	}

	svc, err := NewService(log, cfg, &r.Config{Address: "localhost:6379"}, &stubRunner{}, &stubChecker{})
	require.NoError(t, err)

	s, ok := svc.(*service)
	require.True(t, ok)
	assert.Equal(t, "fareflow:scheduler", s.queue)
	assert.NotNil(t, s.inspector)
}

func TestNewServiceRejectsMissingRedisAddress(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	cfg := &Config{Concurrency: 10}

	_, err := NewService(log, cfg, &r.Config{}, &stubRunner{}, &stubChecker{})
	require.ErrorIs(t, err, r.ErrAddressRequired)
}

func TestHandlePipelineRun(t *testing.T) {
	runner := &stubRunner{}
	svc := &service{
		log:    logrus.New(),
		cfg:    &Config{TaskTimeout: time.Minute},
		runner: runner,
	}

	err := svc.handlePipelineRun(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)
}

func TestHandleHealthCheck(t *testing.T) {
	checker := &stubChecker{}
	svc := &service{
		log:     logrus.New(),
		cfg:     &Config{},
		checker: checker,
	}

	err := svc.handleHealthCheck(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, checker.calls)
}

func TestCalculateUniqueWindow(t *testing.T) {
	tests := []struct {
		schedule string
		want     time.Duration
	}{
		{"0 2 * * *", 30 * time.Second},
		{"@every 15m", 5 * time.Minute},
		{"@every 5m", 4 * time.Minute},
		{"@every 1s", time.Second},
		{"@every 2h", 5 * time.Minute},
		{"@every garbage", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateUniqueWindow(tt.schedule))
		})
	}
}
