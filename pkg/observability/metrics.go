package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// PipelineRunsTotal tracks the total number of pipeline runs
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fareflow_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"load_mode", "status"}, // status: success, failed
	)

	// PipelineRunDuration measures pipeline run duration in seconds
	PipelineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fareflow_pipeline_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~400s
		},
		[]string{"load_mode"},
	)

	// StageDuration measures individual stage duration in seconds
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fareflow_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"stage", "status"},
	)

	// RecordsProcessed counts rows moved by the incremental writer
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fareflow_records_processed_total",
			Help: "Total records processed by outcome",
		},
		[]string{"outcome"}, // outcome: inserted, updated, unchanged, deactivated, failed
	)

	// BaselineSize tracks the active fingerprint count read per run
	BaselineSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fareflow_baseline_fingerprints",
			Help: "Active fingerprints in the staging baseline at run start",
		},
	)

	// ValidationChecks counts validation check outcomes
	ValidationChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fareflow_validation_checks_total",
			Help: "Total validation check outcomes",
		},
		[]string{"check", "status"}, // status: passed, warning, failed
	)

	// HealthStatus exposes the last computed component health (1 healthy,
	// 0.5 warning, 0 unhealthy)
	HealthStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fareflow_health_status",
			Help: "Component health status (1 healthy, 0.5 warning, 0 unhealthy)",
		},
		[]string{"component"},
	)

	// AnomaliesDetected counts anomalies found by the monitor
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fareflow_anomalies_detected_total",
			Help: "Total anomalies detected by the monitor",
		},
		[]string{"type"}, // type: fare_outlier, duplicate_identity, unknown_season
	)
)
