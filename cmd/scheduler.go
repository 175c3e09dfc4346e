package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fareflow/fareflow/pkg/config"
	"github.com/fareflow/fareflow/pkg/monitor"
	"github.com/fareflow/fareflow/pkg/observability"
	"github.com/fareflow/fareflow/pkg/pipeline"
	"github.com/fareflow/fareflow/pkg/scheduler"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the pipeline scheduler service",
	Long: `Runs the pipeline and health checks on their configured cron
schedules, dispatching tasks through Redis.`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return err
	}

	if err := applyLogLevel(cfg.Logging); err != nil {
		return err
	}

	ctx := cmd.Context()

	observability.StartMetricsServer(cfg.MetricsAddr)

	stagingStore, analyticsStore, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = stagingStore.Close() }()
	defer analyticsStore.Close()

	orchestrator, err := pipeline.NewOrchestrator(logger, &cfg.Pipeline, stagingStore, analyticsStore)
	if err != nil {
		return err
	}

	checker := monitor.NewChecker(logger, &cfg.Monitor, stagingStore, analyticsStore)

	svc, err := scheduler.NewService(logger, &cfg.Scheduler, &cfg.Redis, orchestrator, checker)
	if err != nil {
		return err
	}

	if err := svc.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	return svc.Stop()
}
