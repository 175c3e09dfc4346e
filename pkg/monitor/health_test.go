package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fareflow/fareflow/internal/testutil"
	"github.com/fareflow/fareflow/pkg/analytics"
	"github.com/fareflow/fareflow/pkg/flight"
	"github.com/fareflow/fareflow/pkg/staging"
)

var errUnreachable = errors.New("connection refused")

type fakeStagingHealth struct {
	pingErr  error
	stats    staging.Stats
	statsErr error
}

func (f *fakeStagingHealth) Ping(_ context.Context) error {
	return f.pingErr
}

func (f *fakeStagingHealth) TableStats(_ context.Context) (staging.Stats, error) {
	return f.stats, f.statsErr
}

type fakeAnalyticsHealth struct {
	pingErr    error
	stats      analytics.Stats
	executions []analytics.ExecutionEntry
	records    []flight.AnalyticsRecord
}

func (f *fakeAnalyticsHealth) Ping(_ context.Context) error {
	return f.pingErr
}

func (f *fakeAnalyticsHealth) TableStats(_ context.Context) (analytics.Stats, error) {
	return f.stats, nil
}

func (f *fakeAnalyticsHealth) RecentExecutions(_ context.Context, _ time.Time) ([]analytics.ExecutionEntry, error) {
	return f.executions, nil
}

func (f *fakeAnalyticsHealth) ActiveRecords(_ context.Context) ([]flight.AnalyticsRecord, error) {
	return f.records, nil
}

var checkTime = time.Date(2025, 12, 15, 12, 0, 0, 0, time.UTC)

func healthyFakes() (*fakeStagingHealth, *fakeAnalyticsHealth) {
	stagingStore := &fakeStagingHealth{
		stats: staging.Stats{
			ActiveRows:     100,
			TotalRows:      120,
			LastIngestedAt: checkTime.Add(-2 * time.Hour),
		},
	}

	analyticsStore := &fakeAnalyticsHealth{
		stats: analytics.Stats{
			ActiveRows:    100,
			TotalRows:     120,
			LastUpdatedAt: checkTime.Add(-2 * time.Hour),
			KPIRowCounts: map[string]int64{
				"kpi_airline_fares":        5,
				"kpi_seasonal_fares":       8,
				"kpi_route_popularity":     10,
				"kpi_airline_market_share": 5,
			},
		},
		executions: []analytics.ExecutionEntry{
			{
				RunID:      "run-2",
				Status:     "SUCCESS",
				StartedAt:  checkTime.Add(-2 * time.Hour),
				FinishedAt: checkTime.Add(-2*time.Hour + time.Minute),
			},
			{
				RunID:      "run-1",
				Status:     "SUCCESS",
				StartedAt:  checkTime.Add(-26 * time.Hour),
				FinishedAt: checkTime.Add(-26*time.Hour + time.Minute),
			},
		},
		records: []flight.AnalyticsRecord{
			testutil.Booking("h1", "IndiGo", "Delhi", "Mumbai", 4500),
			testutil.Booking("h2", "IndiGo", "Delhi", "Mumbai", 4700),
			testutil.Booking("h3", "Air India", "Chennai", "Kolkata", 4600),
		},
	}

	return stagingStore, analyticsStore
}

func newTestChecker(t *testing.T, stagingStore StagingHealth, analyticsStore AnalyticsHealth) *Checker {
	t.Helper()

	cfg := &Config{}
	cfg.SetDefaults()

	c := NewChecker(testutil.QuietLogger(t), cfg, stagingStore, analyticsStore)
	c.now = func() time.Time { return checkTime }

	return c
}

func componentByName(t *testing.T, snapshot Snapshot, name string) ComponentHealth {
	t.Helper()

	for _, comp := range snapshot.Components {
		if comp.Name == name {
			return comp
		}
	}

	t.Fatalf("component %q not found", name)

	return ComponentHealth{}
}

func TestCheck_AllHealthy(t *testing.T) {
	stagingStore, analyticsStore := healthyFakes()

	snapshot := newTestChecker(t, stagingStore, analyticsStore).Check(context.Background())

	assert.Equal(t, StateHealthy, snapshot.Status)
	assert.Empty(t, snapshot.Anomalies)

	assert.Equal(t, 2, snapshot.Performance.Runs)
	assert.Equal(t, 0, snapshot.Performance.Failed)
	assert.Equal(t, "SUCCESS", snapshot.Performance.LastRunStatus)

	assert.Equal(t, int64(3), snapshot.Quality.ActiveRecords)
	assert.Equal(t, int64(0), snapshot.Quality.UnknownSeasons)
}

func TestCheck_StagingDownIsUnhealthy(t *testing.T) {
	stagingStore, analyticsStore := healthyFakes()
	stagingStore.pingErr = errUnreachable

	snapshot := newTestChecker(t, stagingStore, analyticsStore).Check(context.Background())

	assert.Equal(t, StateUnhealthy, snapshot.Status)

	comp := componentByName(t, snapshot, "staging_store")
	assert.Equal(t, StateUnhealthy, comp.State)

	// Freshness cannot be assessed without the staging store.
	assert.Equal(t, StateUnhealthy, componentByName(t, snapshot, "data_freshness").State)
}

func TestCheck_Freshness(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want HealthState
	}{
		{name: "fresh data", age: 2 * time.Hour, want: StateHealthy},
		{name: "just under healthy threshold", age: 23 * time.Hour, want: StateHealthy},
		{name: "stale data warns", age: 30 * time.Hour, want: StateWarning},
		{name: "very stale data is unhealthy", age: 50 * time.Hour, want: StateUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stagingStore, analyticsStore := healthyFakes()
			stagingStore.stats.LastIngestedAt = checkTime.Add(-tt.age)

			snapshot := newTestChecker(t, stagingStore, analyticsStore).Check(context.Background())

			assert.Equal(t, tt.want, componentByName(t, snapshot, "data_freshness").State)
		})
	}
}

func TestCheck_NoDataIsUnhealthy(t *testing.T) {
	stagingStore, analyticsStore := healthyFakes()
	stagingStore.stats = staging.Stats{}

	snapshot := newTestChecker(t, stagingStore, analyticsStore).Check(context.Background())

	comp := componentByName(t, snapshot, "data_freshness")
	assert.Equal(t, StateUnhealthy, comp.State)
	assert.Contains(t, comp.Detail, "no data")
}

func TestCheck_EmptyKPITablesWarn(t *testing.T) {
	stagingStore, analyticsStore := healthyFakes()
	analyticsStore.stats.KPIRowCounts["kpi_airline_fares"] = 0

	snapshot := newTestChecker(t, stagingStore, analyticsStore).Check(context.Background())

	assert.Equal(t, StateWarning, componentByName(t, snapshot, "kpi_tables").State)
	assert.Equal(t, StateWarning, snapshot.Status)
}

func TestCheck_FailedLastRunWarns(t *testing.T) {
	stagingStore, analyticsStore := healthyFakes()
	analyticsStore.executions[0].Status = "FAILED"

	snapshot := newTestChecker(t, stagingStore, analyticsStore).Check(context.Background())

	comp := componentByName(t, snapshot, "pipeline_runs")
	assert.Equal(t, StateWarning, comp.State)
	assert.Equal(t, 1, snapshot.Performance.Failed)
}

func TestCheck_NoRunsInWindowWarns(t *testing.T) {
	stagingStore, analyticsStore := healthyFakes()
	analyticsStore.executions = nil

	snapshot := newTestChecker(t, stagingStore, analyticsStore).Check(context.Background())

	assert.Equal(t, StateWarning, componentByName(t, snapshot, "pipeline_runs").State)
}

func TestHealthStateWorse(t *testing.T) {
	assert.Equal(t, StateUnhealthy, StateHealthy.Worse(StateUnhealthy))
	assert.Equal(t, StateUnhealthy, StateUnhealthy.Worse(StateWarning))
	assert.Equal(t, StateWarning, StateHealthy.Worse(StateWarning))
	assert.Equal(t, StateHealthy, StateHealthy.Worse(StateHealthy))
}

func TestRenderReport(t *testing.T) {
	stagingStore, analyticsStore := healthyFakes()

	snapshot := newTestChecker(t, stagingStore, analyticsStore).Check(context.Background())

	report, err := RenderReport(&snapshot)
	require.NoError(t, err)

	assert.Contains(t, report, "Overall status: HEALTHY")
	assert.Contains(t, report, "staging_store")
	assert.Contains(t, report, "active records: 3")
	assert.Contains(t, report, "none detected")
}
