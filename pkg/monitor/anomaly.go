package monitor

import (
	"fmt"
	"math"
	"sort"

	"github.com/fareflow/fareflow/pkg/flight"
	"github.com/fareflow/fareflow/pkg/transform"
)

// Anomaly types reported by the detector
const (
	AnomalyFareOutlier       = "fare_outlier"
	AnomalyDuplicateIdentity = "duplicate_identity"
	AnomalyUnknownSeason     = "unknown_season"
)

// Anomaly is one suspicious finding in the active dataset
type Anomaly struct {
	Type        string `json:"type"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Detail      string `json:"detail"`
}

// Detector flags statistical and structural anomalies in analytics records
type Detector struct {
	sigma float64
}

// NewDetector creates a detector using the given sigma multiplier for
// fare outliers
func NewDetector(sigma float64) *Detector {
	return &Detector{sigma: sigma}
}

// Detect scans active records for fare outliers beyond sigma standard
// deviations from the mean, duplicate identities, and unknown seasons.
// Results are ordered deterministically.
func (d *Detector) Detect(records []flight.AnalyticsRecord) []Anomaly {
	var anomalies []Anomaly

	anomalies = append(anomalies, d.fareOutliers(records)...)
	anomalies = append(anomalies, duplicateIdentities(records)...)
	anomalies = append(anomalies, unknownSeasons(records)...)

	return anomalies
}

// fareOutliers needs at least three records for a meaningful spread
func (d *Detector) fareOutliers(records []flight.AnalyticsRecord) []Anomaly {
	if len(records) < 3 {
		return nil
	}

	fares := make([]float64, len(records))

	var sum float64

	for i := range records {
		fares[i], _ = records[i].TotalFare.Float64()
		sum += fares[i]
	}

	mean := sum / float64(len(fares))

	var sumSq float64

	for _, f := range fares {
		diff := f - mean
		sumSq += diff * diff
	}

	sd := math.Sqrt(sumSq / float64(len(fares)-1))
	if sd == 0 {
		return nil
	}

	var anomalies []Anomaly

	for i := range records {
		deviation := math.Abs(fares[i]-mean) / sd
		if deviation > d.sigma {
			anomalies = append(anomalies, Anomaly{
				Type:        AnomalyFareOutlier,
				Fingerprint: records[i].Fingerprint,
				Detail: fmt.Sprintf("total fare %s is %.1f sigma from the mean %.2f",
					records[i].TotalFare.StringFixed(2), deviation, mean),
			})
		}
	}

	sort.Slice(anomalies, func(i, j int) bool { return anomalies[i].Fingerprint < anomalies[j].Fingerprint })

	return anomalies
}

func duplicateIdentities(records []flight.AnalyticsRecord) []Anomaly {
	counts := make(map[string]int, len(records))

	for i := range records {
		if records[i].Fingerprint != "" {
			counts[records[i].Fingerprint]++
		}
	}

	var anomalies []Anomaly

	for fp, count := range counts {
		if count > 1 {
			anomalies = append(anomalies, Anomaly{
				Type:        AnomalyDuplicateIdentity,
				Fingerprint: fp,
				Detail:      fmt.Sprintf("identity appears %d times in active records", count),
			})
		}
	}

	sort.Slice(anomalies, func(i, j int) bool { return anomalies[i].Fingerprint < anomalies[j].Fingerprint })

	return anomalies
}

func unknownSeasons(records []flight.AnalyticsRecord) []Anomaly {
	var count int

	for i := range records {
		if records[i].Season == "" || records[i].Season == transform.SeasonUnknown {
			count++
		}
	}

	if count == 0 {
		return nil
	}

	return []Anomaly{{
		Type:   AnomalyUnknownSeason,
		Detail: fmt.Sprintf("%d active records have no derived season", count),
	}}
}
