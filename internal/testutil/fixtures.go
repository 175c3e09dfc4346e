package testutil

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fareflow/fareflow/pkg/flight"
)

// QuietLogger returns a logger that stays silent during tests
func QuietLogger(t *testing.T) *logrus.Logger {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

// Booking builds a valid analytics record for test input
func Booking(fingerprint, airline, source, destination string, totalFare int64) flight.AnalyticsRecord {
	fare := decimal.NewFromInt(totalFare)

	return flight.AnalyticsRecord{
		Record: flight.Record{
			Airline:       airline,
			Source:        source,
			Destination:   destination,
			DateOfJourney: time.Date(2025, time.December, 20, 0, 0, 0, 0, time.UTC),
			BaseFare:      fare.Sub(decimal.NewFromInt(100)),
			TaxSurcharge:  decimal.NewFromInt(100),
			TotalFare:     fare,
			Season:        "Winter",
			IsPeakSeason:  true,
		},
		Fingerprint:   fingerprint,
		VersionNumber: 1,
		IsActive:      true,
	}
}
