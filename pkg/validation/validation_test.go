package validation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fareflow/fareflow/pkg/flight"
	"github.com/fareflow/fareflow/pkg/transform"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewValidator(log)
}

func validRecord(fingerprint string) flight.StagedRecord {
	return flight.StagedRecord{
		Record: flight.Record{
			Airline:       "IndiGo",
			Source:        "Delhi",
			Destination:   "Mumbai",
			DateOfJourney: time.Date(2025, time.December, 20, 0, 0, 0, 0, time.UTC),
			BaseFare:      decimal.NewFromInt(4000),
			TaxSurcharge:  decimal.NewFromInt(500),
			TotalFare:     decimal.NewFromInt(4500),
			Season:        transform.SeasonWinter,
			IsPeakSeason:  true,
		},
		Fingerprint: fingerprint,
		IsActive:    true,
	}
}

func resultByName(t *testing.T, results []CheckResult, name string) CheckResult {
	t.Helper()

	for _, r := range results {
		if r.Name == name {
			return r
		}
	}

	t.Fatalf("check %q not found", name)

	return CheckResult{}
}

func TestValidate_CleanBatchPasses(t *testing.T) {
	v := newTestValidator(t)

	batch := []flight.StagedRecord{validRecord("h1"), validRecord("h2")}

	results, overall := v.Validate(batch)

	assert.Equal(t, StatusPassed, overall)

	for _, r := range results {
		assert.Equal(t, StatusPassed, r.Status, r.Name)
	}
}

func TestValidate_EmptyBatchWarns(t *testing.T) {
	v := newTestValidator(t)

	results, overall := v.Validate(nil)

	assert.Equal(t, StatusWarning, overall)

	rowCount := resultByName(t, results, "row_count")
	assert.Equal(t, StatusWarning, rowCount.Status)
	assert.Contains(t, rowCount.Detail, "deactivated")
}

func TestValidate_NegativeFaresFail(t *testing.T) {
	v := newTestValidator(t)

	bad := validRecord("h1")
	bad.BaseFare = decimal.NewFromInt(-100)

	_, overall := v.Validate([]flight.StagedRecord{bad, validRecord("h2")})

	assert.Equal(t, StatusFailed, overall)
}

func TestValidate_FareDriftWarnsBelowThreshold(t *testing.T) {
	v := newTestValidator(t)

	batch := make([]flight.StagedRecord, 0, 20)
	for i := 0; i < 19; i++ {
		batch = append(batch, validRecord("h"+string(rune('a'+i))))
	}

	drifted := validRecord("hz")
	drifted.TotalFare = decimal.NewFromInt(9999)
	batch = append(batch, drifted)

	results, overall := v.Validate(batch)

	assert.Equal(t, StatusWarning, overall)
	assert.Equal(t, StatusWarning, resultByName(t, results, "fare_consistency").Status)
}

func TestValidate_ManyMissingFieldsFail(t *testing.T) {
	v := newTestValidator(t)

	missing := validRecord("h1")
	missing.Airline = ""

	// One bad row out of two crosses the 10% escalation threshold.
	_, overall := v.Validate([]flight.StagedRecord{missing, validRecord("h2")})

	assert.Equal(t, StatusFailed, overall)
}

func TestValidate_DuplicateFingerprintsWarn(t *testing.T) {
	v := newTestValidator(t)

	results, overall := v.Validate([]flight.StagedRecord{validRecord("h1"), validRecord("h1")})

	assert.Equal(t, StatusWarning, overall)

	dup := resultByName(t, results, "duplicate_fingerprints")
	assert.Equal(t, StatusWarning, dup.Status)
	assert.Equal(t, int64(1), dup.RowsFailed)
}

func TestValidate_UnknownSeasonWarns(t *testing.T) {
	v := newTestValidator(t)

	unknown := validRecord("h1")
	unknown.Season = transform.SeasonUnknown

	results, overall := v.Validate([]flight.StagedRecord{unknown})

	assert.Equal(t, StatusWarning, overall)
	assert.Equal(t, int64(1), resultByName(t, results, "season_labels").RowsFailed)
}

func TestValidate_ExcessiveFareWarns(t *testing.T) {
	v := newTestValidator(t)

	pricey := validRecord("h1")
	pricey.BaseFare = decimal.NewFromInt(1_999_500)
	pricey.TaxSurcharge = decimal.NewFromInt(500)
	pricey.TotalFare = decimal.NewFromInt(2_000_000)

	results, overall := v.Validate([]flight.StagedRecord{pricey})

	assert.Equal(t, StatusWarning, overall)

	bounds := resultByName(t, results, "fare_bounds")
	assert.Equal(t, StatusWarning, bounds.Status)
	assert.Equal(t, int64(1), bounds.RowsFailed)
}

func TestValidate_DigitsOnlyCityFails(t *testing.T) {
	v := newTestValidator(t)

	bad := validRecord("h1")
	bad.Source = "12345"

	results, overall := v.Validate([]flight.StagedRecord{bad})

	assert.Equal(t, StatusFailed, overall)
	assert.Equal(t, int64(1), resultByName(t, results, "city_names").RowsFailed)
}

func TestBadCityName(t *testing.T) {
	assert.True(t, badCityName(""))
	assert.True(t, badCityName("   "))
	assert.True(t, badCityName("12345"))
	assert.False(t, badCityName("Delhi"))
	assert.False(t, badCityName("Cox's Bazar"))
}

func TestStatusWorse(t *testing.T) {
	assert.Equal(t, StatusFailed, StatusPassed.Worse(StatusFailed))
	assert.Equal(t, StatusFailed, StatusFailed.Worse(StatusWarning))
	assert.Equal(t, StatusWarning, StatusPassed.Worse(StatusWarning))
	assert.Equal(t, StatusPassed, StatusPassed.Worse(StatusPassed))
}

func TestFareBounds(t *testing.T) {
	cheap := validRecord("h1")
	cheap.TotalFare = decimal.NewFromInt(1500)

	expensive := validRecord("h2")
	expensive.TotalFare = decimal.NewFromInt(9000)

	minFare, maxFare := FareBounds([]flight.StagedRecord{cheap, expensive})
	assert.True(t, minFare.Equal(decimal.NewFromInt(1500)))
	assert.True(t, maxFare.Equal(decimal.NewFromInt(9000)))

	minFare, maxFare = FareBounds(nil)
	require.True(t, minFare.IsZero())
	require.True(t, maxFare.IsZero())
}
