// Package transform cleans and enriches flight records between the staging
// and analytics stores: season classification, fare reconciliation, city
// name normalization, and deduplication.
package transform

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fareflow/fareflow/pkg/flight"
)

// Season labels assigned from the journey month
const (
	SeasonWinter  = "Winter"
	SeasonSpring  = "Spring"
	SeasonSummer  = "Summer"
	SeasonMonsoon = "Monsoon"
	SeasonAutumn  = "Autumn"
	SeasonUnknown = "Unknown"
)

// FareTolerance is the maximum drift allowed between total_fare and
// base_fare + tax_surcharge before the total is recomputed
var FareTolerance = decimal.NewFromFloat(0.01)

var peakMonths = map[time.Month]bool{
	time.April:    true,
	time.May:      true,
	time.July:     true,
	time.October:  true,
	time.December: true,
}

// ClassifySeason maps a journey month to its season label
func ClassifySeason(month time.Month) string {
	switch month {
	case time.December, time.January:
		return SeasonWinter
	case time.February:
		return SeasonSpring
	case time.March, time.April, time.May:
		return SeasonSummer
	case time.June, time.July, time.August, time.September:
		return SeasonMonsoon
	case time.October, time.November:
		return SeasonAutumn
	default:
		return SeasonUnknown
	}
}

// IsPeakMonth reports whether a journey month falls in the peak travel window
func IsPeakMonth(month time.Month) bool {
	return peakMonths[month]
}

// Enrich derives the season label and peak flag from the journey date.
// Records without a date get the unknown season and are never peak.
func Enrich(r *flight.Record) {
	if !r.HasDate() {
		r.Season = SeasonUnknown
		r.IsPeakSeason = false

		return
	}

	month := r.DateOfJourney.Month()
	r.Season = ClassifySeason(month)
	r.IsPeakSeason = IsPeakMonth(month)
}

var titleCaser = cases.Title(language.English)

// NormalizeCity trims and title-cases a city name
func NormalizeCity(city string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(city)))
}

// ReconcileTotalFare recomputes total_fare from base + tax when the stored
// total drifts beyond the tolerance. Returns true when a recompute happened.
func ReconcileTotalFare(r *flight.Record) bool {
	expected := r.BaseFare.Add(r.TaxSurcharge)

	if r.TotalFare.Sub(expected).Abs().GreaterThan(FareTolerance) {
		r.TotalFare = expected

		return true
	}

	return false
}

// Transformer converts active staged records into analytics records
type Transformer struct {
	log logrus.FieldLogger
}

// NewTransformer creates the staged-to-analytics transformer
func NewTransformer(log logrus.FieldLogger) *Transformer {
	return &Transformer{
		log: log.WithField("component", "transform"),
	}
}

// Result summarizes one transformation pass
type Result struct {
	Input             int
	Output            int
	DroppedIncomplete int
	DroppedDuplicates int
	FaresReconciled   int
}

// Apply cleans, enriches, and deduplicates staged records into analytics
// records. Records missing required identity fields are dropped. Duplicate
// fingerprints keep only their first occurrence so the analytics upsert
// touches each identity once per run.
func (t *Transformer) Apply(records []flight.StagedRecord) ([]flight.AnalyticsRecord, Result) {
	result := Result{Input: len(records)}

	seen := make(map[string]bool, len(records))
	out := make([]flight.AnalyticsRecord, 0, len(records))

	for i := range records {
		staged := records[i]

		if staged.Airline == "" || staged.Source == "" || staged.Destination == "" || !staged.HasDate() {
			result.DroppedIncomplete++
			continue
		}

		if staged.Fingerprint != "" && seen[staged.Fingerprint] {
			result.DroppedDuplicates++
			continue
		}

		seen[staged.Fingerprint] = true

		staged.Source = NormalizeCity(staged.Source)
		staged.Destination = NormalizeCity(staged.Destination)
		staged.Airline = strings.TrimSpace(staged.Airline)

		if ReconcileTotalFare(&staged.Record) {
			result.FaresReconciled++
		}

		Enrich(&staged.Record)

		out = append(out, flight.AnalyticsRecord{
			Record:      staged.Record,
			Fingerprint: staged.Fingerprint,
			IsActive:    true,
		})
	}

	result.Output = len(out)

	if result.DroppedIncomplete > 0 || result.DroppedDuplicates > 0 {
		t.log.WithFields(logrus.Fields{
			"input":              result.Input,
			"output":             result.Output,
			"dropped_incomplete": result.DroppedIncomplete,
			"dropped_duplicates": result.DroppedDuplicates,
		}).Warn("Transformation dropped records")
	}

	return out, result
}
