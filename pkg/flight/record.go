// Package flight defines the domain types shared across the pipeline stages
package flight

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record represents a single flight-price observation as it moves through
// the pipeline. Times of day are carried in canonical "15:04" form; an
// empty string means the value was absent in the source data.
type Record struct {
	Airline       string          `json:"airline"`
	Source        string          `json:"source"`
	Destination   string          `json:"destination"`
	DateOfJourney time.Time       `json:"date_of_journey"`
	DepartureTime string          `json:"departure_time"`
	ArrivalTime   string          `json:"arrival_time"`
	Duration      string          `json:"duration"`
	Stops         int             `json:"stops"`
	BaseFare      decimal.Decimal `json:"base_fare"`
	TaxSurcharge  decimal.Decimal `json:"tax_surcharge"`
	TotalFare     decimal.Decimal `json:"total_fare"`
	Season        string          `json:"season"`
	IsPeakSeason  bool            `json:"is_peak_season"`
}

// HasDate reports whether the record carries a journey date.
func (r *Record) HasDate() bool {
	return !r.DateOfJourney.IsZero()
}

// StagedRecord is a Record plus the staging-store metadata attached at
// ingestion time.
type StagedRecord struct {
	Record

	Fingerprint string    `json:"record_hash"`
	IsActive    bool      `json:"is_active"`
	IngestedAt  time.Time `json:"ingestion_timestamp"`
	SourceFile  string    `json:"source_file"`
}

// AnalyticsRecord is the transformed, enriched counterpart of a
// StagedRecord in the analytics store. VersionNumber only ever increases
// for a given identity.
type AnalyticsRecord struct {
	Record

	Fingerprint   string    `json:"record_hash"`
	VersionNumber uint32    `json:"version_number"`
	FirstSeenAt   time.Time `json:"first_seen_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	IsActive      bool      `json:"is_active"`
}
