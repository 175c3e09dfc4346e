package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fareflow/fareflow/pkg/analytics"
	"github.com/fareflow/fareflow/pkg/config"
	"github.com/fareflow/fareflow/pkg/observability"
	"github.com/fareflow/fareflow/pkg/pipeline"
	"github.com/fareflow/fareflow/pkg/staging"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one pipeline run",
	Long: `Reads the configured CSV extract, applies incremental change tracking
against the staging baseline, validates and transforms the batch, and
refreshes the analytics store and KPI tables.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
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

	result, err := orchestrator.Run(ctx)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"run_id":    result.RunID,
		"load_mode": result.LoadMode,
		"duration":  result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("Pipeline run finished")

	return nil
}

// openStores connects both stores and provisions their schemas
func openStores(ctx context.Context, cfg *config.Config) (*staging.Store, *analytics.Store, error) {
	stagingStore, err := staging.NewStore(logger, &cfg.Staging)
	if err != nil {
		return nil, nil, err
	}

	if err := stagingStore.EnsureSchema(ctx); err != nil {
		_ = stagingStore.Close()
		return nil, nil, err
	}

	analyticsStore, err := analytics.NewStore(ctx, logger, &cfg.Analytics)
	if err != nil {
		_ = stagingStore.Close()
		return nil, nil, err
	}

	if err := analyticsStore.EnsureSchema(ctx); err != nil {
		_ = stagingStore.Close()
		analyticsStore.Close()
		return nil, nil, err
	}

	return stagingStore, analyticsStore, nil
}
