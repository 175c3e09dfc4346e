package kpi

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fareflow/fareflow/pkg/flight"
)

func booking(airline, source, destination, season string, peak, active bool, totalFare string) flight.AnalyticsRecord {
	fare := decimal.RequireFromString(totalFare)

	return flight.AnalyticsRecord{
		Record: flight.Record{
			Airline:      airline,
			Source:       source,
			Destination:  destination,
			BaseFare:     fare.Sub(decimal.NewFromInt(100)),
			TaxSurcharge: decimal.NewFromInt(100),
			TotalFare:    fare,
			Season:       season,
			IsPeakSeason: peak,
		},
		IsActive: active,
	}
}

func TestCompute_SkipsInactiveRecords(t *testing.T) {
	records := []flight.AnalyticsRecord{
		booking("IndiGo", "Delhi", "Mumbai", "Winter", false, true, "5000"),
		booking("IndiGo", "Delhi", "Mumbai", "Winter", false, false, "9000"),
	}

	results := Compute(records, 10)

	require.Len(t, results.Airlines, 1)
	assert.Equal(t, int64(1), results.Airlines[0].Bookings)
	assert.True(t, results.Airlines[0].AvgTotalFare.Equal(decimal.NewFromInt(5000)))
}

func TestAirlineFares(t *testing.T) {
	records := []flight.AnalyticsRecord{
		booking("IndiGo", "Delhi", "Mumbai", "Winter", false, true, "4000"),
		booking("IndiGo", "Delhi", "Kolkata", "Winter", false, true, "6000"),
		booking("Air India", "Delhi", "Mumbai", "Winter", false, true, "5500"),
	}

	results := Compute(records, 10)

	require.Len(t, results.Airlines, 2)

	// Sorted by airline name.
	assert.Equal(t, "Air India", results.Airlines[0].Airline)
	assert.Equal(t, "IndiGo", results.Airlines[1].Airline)

	indigo := results.Airlines[1]
	assert.Equal(t, int64(2), indigo.Bookings)
	assert.True(t, indigo.AvgTotalFare.Equal(decimal.NewFromInt(5000)), "avg %s", indigo.AvgTotalFare)
	assert.True(t, indigo.MinTotalFare.Equal(decimal.NewFromInt(4000)))
	assert.True(t, indigo.MaxTotalFare.Equal(decimal.NewFromInt(6000)))
}

func TestSeasonalFares(t *testing.T) {
	records := []flight.AnalyticsRecord{
		booking("IndiGo", "Delhi", "Mumbai", "Winter", true, true, "4000"),
		booking("IndiGo", "Delhi", "Mumbai", "Winter", true, true, "5000"),
		booking("IndiGo", "Delhi", "Mumbai", "Winter", true, true, "6000"),
		booking("IndiGo", "Delhi", "Mumbai", "Summer", false, true, "3000"),
	}

	results := Compute(records, 10)

	require.Len(t, results.Seasonal, 2)

	summer := results.Seasonal[0]
	assert.Equal(t, "Summer", summer.Season)
	assert.Equal(t, int64(1), summer.Bookings)
	// Singleton group has no spread.
	assert.True(t, summer.StdDevFare.IsZero())
	assert.True(t, summer.MedianFare.Equal(decimal.NewFromInt(3000)))

	winter := results.Seasonal[1]
	assert.Equal(t, "Winter", winter.Season)
	assert.True(t, winter.IsPeakSeason)
	assert.True(t, winter.MeanFare.Equal(decimal.NewFromInt(5000)))
	assert.True(t, winter.MedianFare.Equal(decimal.NewFromInt(5000)))
	assert.True(t, winter.MinFare.Equal(decimal.NewFromInt(4000)))
	assert.True(t, winter.MaxFare.Equal(decimal.NewFromInt(6000)))
	// Sample stddev of {4000,5000,6000} is 1000.
	assert.True(t, winter.StdDevFare.Equal(decimal.NewFromInt(1000)), "stddev %s", winter.StdDevFare)
}

func TestSeasonalFares_EvenCountMedian(t *testing.T) {
	records := []flight.AnalyticsRecord{
		booking("IndiGo", "Delhi", "Mumbai", "Autumn", false, true, "4000"),
		booking("IndiGo", "Delhi", "Mumbai", "Autumn", false, true, "5000"),
	}

	results := Compute(records, 10)

	require.Len(t, results.Seasonal, 1)
	assert.True(t, results.Seasonal[0].MedianFare.Equal(decimal.NewFromInt(4500)))
}

func TestRoutePopularity_RankingAndTopN(t *testing.T) {
	records := []flight.AnalyticsRecord{
		booking("IndiGo", "Delhi", "Mumbai", "Winter", false, true, "4000"),
		booking("IndiGo", "Delhi", "Mumbai", "Winter", false, true, "5000"),
		booking("IndiGo", "Delhi", "Mumbai", "Winter", false, true, "6000"),
		booking("SpiceJet", "Chennai", "Kolkata", "Winter", false, true, "3500"),
		booking("SpiceJet", "Chennai", "Kolkata", "Winter", false, true, "3500"),
		booking("Vistara", "Pune", "Goa", "Winter", false, true, "2500"),
	}

	results := Compute(records, 2)

	require.Len(t, results.Routes, 2)

	first := results.Routes[0]
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, "Delhi", first.Source)
	assert.Equal(t, "Mumbai", first.Destination)
	assert.Equal(t, int64(3), first.Bookings)
	assert.True(t, first.AvgFare.Equal(decimal.NewFromInt(5000)))

	second := results.Routes[1]
	assert.Equal(t, 2, second.Rank)
	assert.Equal(t, "Chennai", second.Source)
}

func TestAirlineShare(t *testing.T) {
	records := []flight.AnalyticsRecord{
		booking("IndiGo", "Delhi", "Mumbai", "Winter", true, true, "4000"),
		booking("IndiGo", "Delhi", "Mumbai", "Summer", false, true, "4000"),
		booking("IndiGo", "Delhi", "Mumbai", "Summer", false, true, "4000"),
		booking("Air India", "Delhi", "Mumbai", "Winter", true, true, "5000"),
	}

	results := Compute(records, 10)

	require.Len(t, results.MarketShare, 2)

	indigo := results.MarketShare[0]
	assert.Equal(t, "IndiGo", indigo.Airline)
	assert.Equal(t, int64(3), indigo.TotalBookings)
	assert.Equal(t, int64(1), indigo.PeakBookings)
	assert.Equal(t, int64(2), indigo.OffPeakBookings)
	assert.True(t, indigo.MarketSharePct.Equal(decimal.NewFromInt(75)), "share %s", indigo.MarketSharePct)

	airIndia := results.MarketShare[1]
	assert.True(t, airIndia.MarketSharePct.Equal(decimal.NewFromInt(25)))
}

func TestCompute_EmptyInput(t *testing.T) {
	results := Compute(nil, 10)

	assert.Empty(t, results.Airlines)
	assert.Empty(t, results.Seasonal)
	assert.Empty(t, results.Routes)
	assert.Empty(t, results.MarketShare)
}
