package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fareflow/fareflow/internal/testutil"
	r "github.com/fareflow/fareflow/pkg/redis"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *SnapshotCache) {
	t.Helper()

	mr, client := testutil.NewMiniredisClient(t)

	return mr, NewSnapshotCache(client, &r.Config{Address: mr.Addr(), Prefix: "fareflow"}, time.Minute)
}

func TestSnapshotCache_RoundTrip(t *testing.T) {
	mr, cache := newTestCache(t)
	ctx := context.Background()

	// Miss before anything is stored.
	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	snapshot := &Snapshot{
		Status:      StateWarning,
		GeneratedAt: time.Date(2025, 12, 15, 12, 0, 0, 0, time.UTC),
		Components: []ComponentHealth{
			{Name: "staging_store", State: StateHealthy, Latency: "1ms"},
			{Name: "data_freshness", State: StateWarning, Detail: "last ingestion 30h0m0s ago", Latency: "0s"},
		},
		Anomalies: []Anomaly{
			{Type: AnomalyUnknownSeason, Detail: "2 active records have no derived season"},
		},
	}
	require.NoError(t, cache.Set(ctx, snapshot))

	// The stored key carries the configured namespace.
	assert.True(t, mr.Exists("fareflow:monitor:snapshot"))

	got, err = cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, StateWarning, got.Status)
	assert.True(t, got.GeneratedAt.Equal(snapshot.GeneratedAt))
	require.Len(t, got.Components, 2)
	assert.Equal(t, "data_freshness", got.Components[1].Name)
	require.Len(t, got.Anomalies, 1)
	assert.Equal(t, AnomalyUnknownSeason, got.Anomalies[0].Type)
}

func TestSnapshotCache_TTLExpiry(t *testing.T) {
	mr, cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &Snapshot{Status: StateHealthy}))

	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotCache_Invalidate(t *testing.T) {
	_, cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &Snapshot{Status: StateHealthy}))
	require.NoError(t, cache.Invalidate(ctx))

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
