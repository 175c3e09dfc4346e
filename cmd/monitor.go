package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/fareflow/fareflow/pkg/config"
	"github.com/fareflow/fareflow/pkg/monitor"
	"github.com/fareflow/fareflow/pkg/observability"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Start the health monitoring API",
	Long: `Serves pipeline health over HTTP: component status, data freshness,
recent run performance, data quality, and fare anomalies.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
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

	checker := monitor.NewChecker(logger, &cfg.Monitor, stagingStore, analyticsStore)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
	defer func() { _ = redisClient.Close() }()

	cache := monitor.NewSnapshotCache(redisClient, &cfg.Redis, cfg.Monitor.SnapshotTTL)

	svc := monitor.NewService(&cfg.Monitor, checker, cache, logger)

	if err := svc.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	return svc.Stop()
}
