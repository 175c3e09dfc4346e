// Package cmd contains the CLI commands for fareflow
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Global vars needed for cobra CLI
var (
	cfgFile string
	logger  *logrus.Logger
)

// rootCmd represents the base command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "fareflow",
	Short: "FareFlow - Incremental flight-fare ETL pipeline",
	Long: `FareFlow ingests flight-price CSV extracts into a ClickHouse staging
store, classifies records against the active baseline, propagates changes
into a PostgreSQL analytics store, and computes fare KPIs. Companion
services run the pipeline on a schedule and expose pipeline health.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	// Initialize logger
	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func initLogging() {
	if cfgFile == "" {
		cfgFile = "./config.yaml"
	}
}

// applyLogLevel sets the logger level from config, letting the --log-level
// flag win when set.
func applyLogLevel(configured string) error {
	level := configured

	if flagLevel, err := rootCmd.PersistentFlags().GetString("log-level"); err == nil && flagLevel != "" {
		level = flagLevel
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger.SetLevel(parsed)

	return nil
}
