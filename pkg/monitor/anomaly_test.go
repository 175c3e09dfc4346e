package monitor

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fareflow/fareflow/internal/testutil"
	"github.com/fareflow/fareflow/pkg/flight"
	"github.com/fareflow/fareflow/pkg/transform"
)

func TestDetect_FareOutlier(t *testing.T) {
	records := []flight.AnalyticsRecord{
		testutil.Booking("h1", "IndiGo", "Delhi", "Mumbai", 4500),
		testutil.Booking("h2", "IndiGo", "Delhi", "Mumbai", 4600),
		testutil.Booking("h3", "IndiGo", "Delhi", "Mumbai", 4400),
		testutil.Booking("h4", "IndiGo", "Delhi", "Mumbai", 4500),
		testutil.Booking("h5", "IndiGo", "Delhi", "Mumbai", 4550),
		testutil.Booking("h6", "IndiGo", "Delhi", "Mumbai", 4450),
		testutil.Booking("h7", "IndiGo", "Delhi", "Mumbai", 4500),
		// Wildly out of line with the cluster above.
		testutil.Booking("h8", "IndiGo", "Delhi", "Mumbai", 95000),
	}

	anomalies := NewDetector(2.0).Detect(records)

	require.NotEmpty(t, anomalies)
	assert.Equal(t, AnomalyFareOutlier, anomalies[0].Type)
	assert.Equal(t, "h8", anomalies[0].Fingerprint)
}

func TestDetect_NoOutliersInUniformFares(t *testing.T) {
	records := []flight.AnalyticsRecord{
		testutil.Booking("h1", "IndiGo", "Delhi", "Mumbai", 4500),
		testutil.Booking("h2", "IndiGo", "Delhi", "Mumbai", 4500),
		testutil.Booking("h3", "IndiGo", "Delhi", "Mumbai", 4500),
	}

	// Zero spread must not divide by zero or flag anything.
	assert.Empty(t, NewDetector(3.0).Detect(records))
}

func TestDetect_TooFewRecordsForOutliers(t *testing.T) {
	records := []flight.AnalyticsRecord{
		testutil.Booking("h1", "IndiGo", "Delhi", "Mumbai", 100),
		testutil.Booking("h2", "IndiGo", "Delhi", "Mumbai", 90000),
	}

	assert.Empty(t, NewDetector(3.0).Detect(records))
}

func TestDetect_DuplicateIdentity(t *testing.T) {
	records := []flight.AnalyticsRecord{
		testutil.Booking("h1", "IndiGo", "Delhi", "Mumbai", 4500),
		testutil.Booking("h1", "IndiGo", "Delhi", "Mumbai", 4500),
		testutil.Booking("h2", "IndiGo", "Delhi", "Mumbai", 4600),
	}

	anomalies := NewDetector(3.0).Detect(records)

	require.Len(t, anomalies, 1)
	assert.Equal(t, AnomalyDuplicateIdentity, anomalies[0].Type)
	assert.Equal(t, "h1", anomalies[0].Fingerprint)
	assert.Contains(t, anomalies[0].Detail, "2 times")
}

func TestDetect_UnknownSeason(t *testing.T) {
	bad := testutil.Booking("h1", "IndiGo", "Delhi", "Mumbai", 4500)
	bad.Season = transform.SeasonUnknown

	records := []flight.AnalyticsRecord{
		bad,
		testutil.Booking("h2", "IndiGo", "Delhi", "Mumbai", 4600),
	}

	anomalies := NewDetector(3.0).Detect(records)

	require.Len(t, anomalies, 1)
	assert.Equal(t, AnomalyUnknownSeason, anomalies[0].Type)
	assert.Contains(t, anomalies[0].Detail, "1 active records")
}

func TestDetect_EmptyInput(t *testing.T) {
	assert.Empty(t, NewDetector(3.0).Detect(nil))
}

func TestDetect_OutlierDetailMentionsFare(t *testing.T) {
	records := []flight.AnalyticsRecord{
		testutil.Booking("h1", "IndiGo", "Delhi", "Mumbai", 4500),
		testutil.Booking("h2", "IndiGo", "Delhi", "Mumbai", 4600),
		testutil.Booking("h3", "IndiGo", "Delhi", "Mumbai", 4400),
		testutil.Booking("h4", "IndiGo", "Delhi", "Mumbai", 4500),
		testutil.Booking("h5", "IndiGo", "Delhi", "Mumbai", 4550),
		testutil.Booking("h6", "IndiGo", "Delhi", "Mumbai", 4450),
		testutil.Booking("h7", "IndiGo", "Delhi", "Mumbai", 4500),
		testutil.Booking("h8", "IndiGo", "Delhi", "Mumbai", 95000),
	}

	anomalies := NewDetector(2.0).Detect(records)

	require.NotEmpty(t, anomalies)
	assert.Contains(t, anomalies[0].Detail, decimal.NewFromInt(95000).StringFixed(2))
}
