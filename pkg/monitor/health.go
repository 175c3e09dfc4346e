package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fareflow/fareflow/pkg/analytics"
	"github.com/fareflow/fareflow/pkg/flight"
	"github.com/fareflow/fareflow/pkg/observability"
	"github.com/fareflow/fareflow/pkg/staging"
	"github.com/fareflow/fareflow/pkg/transform"
)

// HealthState is the health of one component or the whole system
type HealthState string

// Health states, ordered by severity
const (
	StateHealthy   HealthState = "HEALTHY"
	StateWarning   HealthState = "WARNING"
	StateUnhealthy HealthState = "UNHEALTHY"
)

func (s HealthState) severity() int {
	switch s {
	case StateUnhealthy:
		return 2
	case StateWarning:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of two states
func (s HealthState) Worse(other HealthState) HealthState {
	if other.severity() > s.severity() {
		return other
	}

	return s
}

func (s HealthState) gaugeValue() float64 {
	switch s {
	case StateHealthy:
		return 1
	case StateWarning:
		return 0.5
	default:
		return 0
	}
}

// ComponentHealth is the check outcome for one component
type ComponentHealth struct {
	Name    string      `json:"name"`
	State   HealthState `json:"state"`
	Detail  string      `json:"detail,omitempty"`
	Latency string      `json:"latency"`
}

// Performance summarizes pipeline runs inside the configured window
type Performance struct {
	WindowStart     time.Time `json:"window_start"`
	Runs            int       `json:"runs"`
	Succeeded       int       `json:"succeeded"`
	Failed          int       `json:"failed"`
	AvgDuration     string    `json:"avg_duration"`
	RowsInserted    int64     `json:"rows_inserted"`
	RowsUpdated     int64     `json:"rows_updated"`
	RowsDeactivated int64     `json:"rows_deactivated"`
	LastRunStatus   string    `json:"last_run_status,omitempty"`
	LastRunAt       time.Time `json:"last_run_at"`
}

// Quality summarizes the active analytics dataset
type Quality struct {
	ActiveRecords  int64           `json:"active_records"`
	MeanTotalFare  decimal.Decimal `json:"mean_total_fare"`
	MinTotalFare   decimal.Decimal `json:"min_total_fare"`
	MaxTotalFare   decimal.Decimal `json:"max_total_fare"`
	UnknownSeasons int64           `json:"unknown_seasons"`
}

// Snapshot is a full health assessment at a point in time
type Snapshot struct {
	Status      HealthState       `json:"status"`
	GeneratedAt time.Time         `json:"generated_at"`
	Components  []ComponentHealth `json:"components"`
	Performance Performance       `json:"performance"`
	Quality     Quality           `json:"quality"`
	Anomalies   []Anomaly         `json:"anomalies"`
}

// StagingHealth is the staging store surface the monitor needs
type StagingHealth interface {
	Ping(ctx context.Context) error
	TableStats(ctx context.Context) (staging.Stats, error)
}

// AnalyticsHealth is the analytics store surface the monitor needs
type AnalyticsHealth interface {
	Ping(ctx context.Context) error
	TableStats(ctx context.Context) (analytics.Stats, error)
	RecentExecutions(ctx context.Context, since time.Time) ([]analytics.ExecutionEntry, error)
	ActiveRecords(ctx context.Context) ([]flight.AnalyticsRecord, error)
}

// Checker assembles health snapshots from the staging and analytics stores
type Checker struct {
	log       logrus.FieldLogger
	cfg       *Config
	staging   StagingHealth
	analytics AnalyticsHealth
	detector  *Detector
	alerter   *Alerter

	// now is injectable so freshness windows are testable
	now func() time.Time
}

// NewChecker creates a health checker
func NewChecker(log logrus.FieldLogger, cfg *Config, stagingStore StagingHealth, analyticsStore AnalyticsHealth) *Checker {
	return &Checker{
		log:       log.WithField("component", "monitor"),
		cfg:       cfg,
		staging:   stagingStore,
		analytics: analyticsStore,
		detector:  NewDetector(cfg.AnomalySigma),
		alerter:   NewAlerter(log),
		now:       time.Now,
	}
}

// Check runs the full assessment: connectivity, freshness, run history,
// data quality, and anomaly detection. Individual store failures degrade
// the snapshot instead of failing the check.
func (c *Checker) Check(ctx context.Context) Snapshot {
	snapshot := Snapshot{
		Status:      StateHealthy,
		GeneratedAt: c.now().UTC(),
	}

	stagingStats, stagingHealth := c.checkStaging(ctx)
	snapshot.Components = append(snapshot.Components, stagingHealth)

	analyticsStats, analyticsHealth := c.checkAnalytics(ctx)
	snapshot.Components = append(snapshot.Components, analyticsHealth)

	snapshot.Components = append(snapshot.Components,
		c.checkFreshness(stagingStats, stagingHealth.State),
		c.checkKPITables(analyticsStats, analyticsHealth.State),
	)

	perf, perfHealth := c.checkPerformance(ctx)
	snapshot.Performance = perf
	snapshot.Components = append(snapshot.Components, perfHealth)

	if analyticsHealth.State != StateUnhealthy {
		records, err := c.analytics.ActiveRecords(ctx)
		if err != nil {
			c.log.WithError(err).Warn("Failed to read records for anomaly detection")
		} else {
			snapshot.Quality = summarizeQuality(records)
			snapshot.Anomalies = c.detector.Detect(records)
		}
	}

	for _, comp := range snapshot.Components {
		snapshot.Status = snapshot.Status.Worse(comp.State)
		observability.HealthStatus.WithLabelValues(comp.Name).Set(comp.State.gaugeValue())
	}

	for _, a := range snapshot.Anomalies {
		observability.AnomaliesDetected.WithLabelValues(a.Type).Inc()
	}

	c.alerter.Dispatch(&snapshot)

	return snapshot
}

func (c *Checker) checkStaging(ctx context.Context) (staging.Stats, ComponentHealth) {
	health := ComponentHealth{Name: "staging_store", State: StateHealthy}

	start := c.now()

	if err := c.staging.Ping(ctx); err != nil {
		health.State = StateUnhealthy
		health.Detail = fmt.Sprintf("ping failed: %v", err)
		health.Latency = time.Since(start).String()

		return staging.Stats{}, health
	}

	stats, err := c.staging.TableStats(ctx)
	health.Latency = time.Since(start).String()

	if err != nil {
		health.State = StateWarning
		health.Detail = fmt.Sprintf("stats unavailable: %v", err)

		return staging.Stats{}, health
	}

	health.Detail = fmt.Sprintf("%d active of %d staged rows", stats.ActiveRows, stats.TotalRows)

	return stats, health
}

func (c *Checker) checkAnalytics(ctx context.Context) (analytics.Stats, ComponentHealth) {
	health := ComponentHealth{Name: "analytics_store", State: StateHealthy}

	start := c.now()

	if err := c.analytics.Ping(ctx); err != nil {
		health.State = StateUnhealthy
		health.Detail = fmt.Sprintf("ping failed: %v", err)
		health.Latency = time.Since(start).String()

		return analytics.Stats{}, health
	}

	stats, err := c.analytics.TableStats(ctx)
	health.Latency = time.Since(start).String()

	if err != nil {
		health.State = StateWarning
		health.Detail = fmt.Sprintf("stats unavailable: %v", err)

		return analytics.Stats{}, health
	}

	health.Detail = fmt.Sprintf("%d active of %d analytics rows", stats.ActiveRows, stats.TotalRows)

	return stats, health
}

// checkFreshness grades the staging data age against the configured
// thresholds. No data at all is unhealthy.
func (c *Checker) checkFreshness(stats staging.Stats, storeState HealthState) ComponentHealth {
	health := ComponentHealth{Name: "data_freshness", State: StateHealthy, Latency: "0s"}

	if storeState == StateUnhealthy {
		health.State = StateUnhealthy
		health.Detail = "staging store unreachable"

		return health
	}

	if stats.TotalRows == 0 || stats.LastIngestedAt.IsZero() {
		health.State = StateUnhealthy
		health.Detail = "no data has been ingested"

		return health
	}

	age := c.now().Sub(stats.LastIngestedAt)
	health.Detail = fmt.Sprintf("last ingestion %s ago", age.Round(time.Minute))

	switch {
	case age <= c.cfg.FreshnessHealthy:
	case age <= c.cfg.FreshnessWarning:
		health.State = StateWarning
	default:
		health.State = StateUnhealthy
	}

	return health
}

func (c *Checker) checkKPITables(stats analytics.Stats, storeState HealthState) ComponentHealth {
	health := ComponentHealth{Name: "kpi_tables", State: StateHealthy, Latency: "0s"}

	if storeState == StateUnhealthy {
		health.State = StateUnhealthy
		health.Detail = "analytics store unreachable"

		return health
	}

	var empty int

	for _, count := range stats.KPIRowCounts {
		if count == 0 {
			empty++
		}
	}

	switch {
	case len(stats.KPIRowCounts) == 0:
		health.State = StateWarning
		health.Detail = "KPI tables not yet populated"
	case empty > 0:
		health.State = StateWarning
		health.Detail = fmt.Sprintf("%d of %d KPI tables are empty", empty, len(stats.KPIRowCounts))
	default:
		health.Detail = fmt.Sprintf("%d KPI tables populated", len(stats.KPIRowCounts))
	}

	return health
}

func (c *Checker) checkPerformance(ctx context.Context) (Performance, ComponentHealth) {
	health := ComponentHealth{Name: "pipeline_runs", State: StateHealthy, Latency: "0s"}
	windowStart := c.now().Add(-c.cfg.PerformanceWindow)
	perf := Performance{WindowStart: windowStart.UTC()}

	entries, err := c.analytics.RecentExecutions(ctx, windowStart)
	if err != nil {
		health.State = StateWarning
		health.Detail = fmt.Sprintf("execution log unavailable: %v", err)

		return perf, health
	}

	var totalDuration time.Duration

	for _, e := range entries {
		perf.Runs++

		if e.Status == "SUCCESS" {
			perf.Succeeded++
		} else {
			perf.Failed++
		}

		totalDuration += e.Duration()
		perf.RowsInserted += e.RowsInserted
		perf.RowsUpdated += e.RowsUpdated
		perf.RowsDeactivated += e.RowsDeactivated
	}

	if perf.Runs > 0 {
		perf.AvgDuration = (totalDuration / time.Duration(perf.Runs)).Round(time.Millisecond).String()
		// RecentExecutions returns newest first.
		perf.LastRunStatus = entries[0].Status
		perf.LastRunAt = entries[0].StartedAt
	} else {
		perf.AvgDuration = "0s"
	}

	switch {
	case perf.Runs == 0:
		health.State = StateWarning
		health.Detail = "no pipeline runs in window"
	case perf.LastRunStatus != "SUCCESS":
		health.State = StateWarning
		health.Detail = "most recent pipeline run failed"
	default:
		health.Detail = fmt.Sprintf("%d runs, %d failed", perf.Runs, perf.Failed)
	}

	return perf, health
}

func summarizeQuality(records []flight.AnalyticsRecord) Quality {
	quality := Quality{
		ActiveRecords: int64(len(records)),
		MeanTotalFare: decimal.Zero,
		MinTotalFare:  decimal.Zero,
		MaxTotalFare:  decimal.Zero,
	}

	if len(records) == 0 {
		return quality
	}

	sum := decimal.Zero
	quality.MinTotalFare = records[0].TotalFare
	quality.MaxTotalFare = records[0].TotalFare

	for i := range records {
		r := &records[i]
		sum = sum.Add(r.TotalFare)
		quality.MinTotalFare = decimal.Min(quality.MinTotalFare, r.TotalFare)
		quality.MaxTotalFare = decimal.Max(quality.MaxTotalFare, r.TotalFare)

		if r.Season == "" || r.Season == transform.SeasonUnknown {
			quality.UnknownSeasons++
		}
	}

	quality.MeanTotalFare = sum.Div(decimal.NewFromInt(int64(len(records)))).Round(2)

	return quality
}
