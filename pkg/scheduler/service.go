package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fareflow/fareflow/pkg/monitor"
	"github.com/fareflow/fareflow/pkg/pipeline"
	r "github.com/fareflow/fareflow/pkg/redis"
)

const (
	// TaskPipelineRun triggers a full pipeline execution
	TaskPipelineRun = "pipeline:run"
	// TaskHealthCheck triggers a health snapshot refresh
	TaskHealthCheck = "monitor:health"
	// QueueName is the queue for scheduled tasks, namespaced through the
	// configured redis prefix
	QueueName = "scheduler"
)

// statusInterval is how often the running schedule is reported
const statusInterval = 5 * time.Minute

// PipelineRunner executes one pipeline run
type PipelineRunner interface {
	Run(ctx context.Context) (pipeline.RunResult, error)
}

// HealthChecker produces a health snapshot
type HealthChecker interface {
	Check(ctx context.Context) monitor.Snapshot
}

// Service defines the public interface for the scheduler
type Service interface {
	// Start initializes and starts the scheduler service
	Start(ctx context.Context) error

	// Stop gracefully shuts down the scheduler service
	Stop() error
}

// service triggers pipeline runs and health checks on their cron schedules
type service struct {
	log logrus.FieldLogger
	cfg *Config

	done chan struct{}
	wg   sync.WaitGroup

	runner  PipelineRunner
	checker HealthChecker

	queue     string
	scheduler *asynq.Scheduler
	server    *asynq.Server
	mux       *asynq.ServeMux
	inspector *asynq.Inspector
}

// NewService creates a new scheduler service
func NewService(log logrus.FieldLogger, cfg *Config, redisCfg *r.Config, runner PipelineRunner, checker HealthChecker) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := redisCfg.Validate(); err != nil {
		return nil, err
	}

	queue := redisCfg.PrefixQueue(QueueName)

	asynqRedis := r.NewAsynqRedisOptions(&goredis.Options{Addr: redisCfg.Address})

	scheduler := asynq.NewScheduler(asynqRedis, &asynq.SchedulerOpts{
		Location: time.UTC,
		LogLevel: asynq.InfoLevel,
	})

	server := asynq.NewServer(asynqRedis, asynq.Config{
		Queues: map[string]int{
			queue: 10,
		},
		Concurrency: cfg.Concurrency,
	})

	inspector := asynq.NewInspector(asynqRedis)

	mux := asynq.NewServeMux()

	return &service{
		log:  log.WithField("service", "scheduler"),
		cfg:  cfg,
		done: make(chan struct{}),

		runner:  runner,
		checker: checker,

		queue:     queue,
		scheduler: scheduler,
		server:    server,
		mux:       mux,
		inspector: inspector,
	}, nil
}

// Start registers schedules and handlers and starts processing tasks
func (s *service) Start(ctx context.Context) error {
	s.registerHandlers()

	if err := s.registerSchedules(); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if runErr := s.server.Run(s.mux); runErr != nil {
			s.log.WithError(runErr).Error("Scheduler server stopped with error")
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if runErr := s.scheduler.Run(); runErr != nil {
			s.log.WithError(runErr).Error("Scheduler stopped with error")
		}
	}()

	s.wg.Add(1)
	go s.runStatusLoop(ctx)

	s.log.WithFields(logrus.Fields{
		"queue":             s.queue,
		"pipeline_schedule": s.cfg.PipelineSchedule,
		"health_schedule":   s.cfg.HealthSchedule,
	}).Info("Scheduler service started")

	return nil
}

// runStatusLoop periodically reports the registered schedule entries so
// operators can see what the scheduler believes it owns.
func (s *service) runStatusLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries, err := s.inspector.SchedulerEntries()
			if err != nil {
				s.log.WithError(err).Warn("Failed to list scheduler entries")
				continue
			}

			s.log.WithField("entries", len(entries)).Debug("Scheduler entries registered")
		}
	}
}

// Stop gracefully shuts down the scheduler service
func (s *service) Stop() error {
	close(s.done)

	if s.scheduler != nil {
		s.scheduler.Shutdown()
	}

	if s.server != nil {
		s.server.Shutdown()
	}

	s.wg.Wait()

	s.log.Info("Scheduler service stopped successfully")

	return nil
}

// registerHandlers registers task handlers on the mux (called once at startup)
func (s *service) registerHandlers() {
	if s.runner != nil {
		s.mux.HandleFunc(TaskPipelineRun, s.handlePipelineRun)
		s.log.Debug("Registered pipeline run handler")
	}

	if s.checker != nil {
		s.mux.HandleFunc(TaskHealthCheck, s.handleHealthCheck)
		s.log.Debug("Registered health check handler")
	}
}

// registerSchedules registers the cron entries with the asynq scheduler
func (s *service) registerSchedules() error {
	if s.runner != nil {
		if err := s.registerScheduledTask(TaskPipelineRun, s.cfg.PipelineSchedule); err != nil {
			return err
		}
	}

	if s.checker != nil {
		if err := s.registerScheduledTask(TaskHealthCheck, s.cfg.HealthSchedule); err != nil {
			return err
		}
	}

	return nil
}

func (s *service) registerScheduledTask(taskType, schedule string) error {
	if schedule == "" {
		s.log.WithField("task_type", taskType).Debug("Skipping registration of task with empty schedule")
		return nil
	}

	task := asynq.NewTask(taskType, nil)

	entryID, err := s.scheduler.Register(schedule, task,
		asynq.Queue(s.queue),
		asynq.Unique(calculateUniqueWindow(schedule)),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"task_type": taskType,
		"schedule":  schedule,
		"entry_id":  entryID,
	}).Info("Registered scheduled task")

	return nil
}

func (s *service) handlePipelineRun(ctx context.Context, _ *asynq.Task) error {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.TaskTimeout)
	defer cancel()

	result, err := s.runner.Run(runCtx)
	if err != nil {
		s.log.WithError(err).WithField("run_id", result.RunID).Error("Scheduled pipeline run failed")
		return err
	}

	s.log.WithFields(logrus.Fields{
		"run_id":    result.RunID,
		"load_mode": result.LoadMode,
		"inserted":  result.RowsInserted,
		"updated":   result.RowsUpdated,
	}).Info("Scheduled pipeline run completed")

	return nil
}

func (s *service) handleHealthCheck(ctx context.Context, _ *asynq.Task) error {
	snapshot := s.checker.Check(ctx)

	s.log.WithFields(logrus.Fields{
		"status":    snapshot.Status,
		"anomalies": len(snapshot.Anomalies),
	}).Info("Scheduled health check completed")

	return nil
}

// calculateUniqueWindow derives a uniqueness window from the schedule so a
// slow task cannot be triggered again while the previous one still runs.
func calculateUniqueWindow(schedule string) time.Duration {
	const defaultWindow = 30 * time.Second

	if !strings.HasPrefix(schedule, "@every ") {
		return defaultWindow
	}

	interval, err := time.ParseDuration(strings.TrimPrefix(schedule, "@every "))
	if err != nil {
		return defaultWindow
	}

	uniqueWindow := time.Duration(float64(interval) * 0.8)

	if uniqueWindow < time.Second {
		uniqueWindow = time.Second
	}
	if uniqueWindow > 5*time.Minute {
		uniqueWindow = 5 * time.Minute
	}

	return uniqueWindow
}
