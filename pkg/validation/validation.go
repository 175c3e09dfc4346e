// Package validation runs data quality checks over an ingested batch
// before it is committed downstream
package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fareflow/fareflow/pkg/flight"
	"github.com/fareflow/fareflow/pkg/transform"
)

// Status is the outcome of a single check or a whole validation pass
type Status string

// Check statuses, ordered by severity
const (
	StatusPassed  Status = "PASSED"
	StatusWarning Status = "WARNING"
	StatusFailed  Status = "FAILED"
)

func (s Status) severity() int {
	switch s {
	case StatusFailed:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of two statuses
func (s Status) Worse(other Status) Status {
	if other.severity() > s.severity() {
		return other
	}

	return s
}

// CheckResult is the outcome of one named quality check
type CheckResult struct {
	Name        string
	Status      Status
	RowsChecked int64
	RowsFailed  int64
	Detail      string
}

// failedRowThreshold is the fraction of failing rows at which a check
// escalates from WARNING to FAILED
const failedRowThreshold = 0.10

// maxFareValue is the upper bound for a plausible total fare (1M BDT)
var maxFareValue = decimal.NewFromInt(1_000_000)

// Validator runs the quality check suite
type Validator struct {
	log logrus.FieldLogger
}

// NewValidator creates a validator
func NewValidator(log logrus.FieldLogger) *Validator {
	return &Validator{
		log: log.WithField("component", "validation"),
	}
}

// Validate runs all checks over the batch and returns the per-check
// results plus the worst status observed. A FAILED overall status means
// the batch should not proceed to transformation.
func (v *Validator) Validate(batch []flight.StagedRecord) ([]CheckResult, Status) {
	results := []CheckResult{
		checkRowCount(batch),
		checkRequiredFields(batch),
		checkFingerprints(batch),
		checkNonNegativeFares(batch),
		checkFareConsistency(batch),
		checkFareBounds(batch),
		checkCityNames(batch),
		checkDuplicateFingerprints(batch),
		checkSeasonLabels(batch),
	}

	overall := StatusPassed

	for _, r := range results {
		overall = overall.Worse(r.Status)

		entry := v.log.WithFields(logrus.Fields{
			"check":        r.Name,
			"status":       r.Status,
			"rows_checked": r.RowsChecked,
			"rows_failed":  r.RowsFailed,
		})

		switch r.Status {
		case StatusFailed:
			entry.Error("Data quality check failed")
		case StatusWarning:
			entry.Warn("Data quality check raised a warning")
		default:
			entry.Debug("Data quality check passed")
		}
	}

	return results, overall
}

// escalate picks WARNING for a small share of bad rows and FAILED once
// the share crosses the threshold
func escalate(checked, failed int64) Status {
	if failed == 0 {
		return StatusPassed
	}

	if checked > 0 && float64(failed)/float64(checked) > failedRowThreshold {
		return StatusFailed
	}

	return StatusWarning
}

func checkRowCount(batch []flight.StagedRecord) CheckResult {
	result := CheckResult{
		Name:        "row_count",
		Status:      StatusPassed,
		RowsChecked: int64(len(batch)),
	}

	if len(batch) == 0 {
		// An empty batch deactivates every staged record downstream, so
		// surface it loudly without blocking the run.
		result.Status = StatusWarning
		result.Detail = "batch is empty; all active staged records will be deactivated"
	}

	return result
}

func checkRequiredFields(batch []flight.StagedRecord) CheckResult {
	var failed int64

	for i := range batch {
		r := &batch[i]
		if r.Airline == "" || r.Source == "" || r.Destination == "" || !r.HasDate() {
			failed++
		}
	}

	return CheckResult{
		Name:        "required_fields",
		Status:      escalate(int64(len(batch)), failed),
		RowsChecked: int64(len(batch)),
		RowsFailed:  failed,
		Detail:      detailIf(failed, "rows missing airline, route, or journey date"),
	}
}

func checkFingerprints(batch []flight.StagedRecord) CheckResult {
	var failed int64

	for i := range batch {
		if batch[i].Fingerprint == "" {
			failed++
		}
	}

	return CheckResult{
		Name:        "fingerprints_present",
		Status:      escalate(int64(len(batch)), failed),
		RowsChecked: int64(len(batch)),
		RowsFailed:  failed,
		Detail:      detailIf(failed, "rows without a record fingerprint are unclassifiable"),
	}
}

func checkNonNegativeFares(batch []flight.StagedRecord) CheckResult {
	var failed int64

	for i := range batch {
		r := &batch[i]
		if r.BaseFare.IsNegative() || r.TaxSurcharge.IsNegative() || r.TotalFare.IsNegative() {
			failed++
		}
	}

	status := StatusPassed
	if failed > 0 {
		// Negative money is never tolerable regardless of volume.
		status = StatusFailed
	}

	return CheckResult{
		Name:        "non_negative_fares",
		Status:      status,
		RowsChecked: int64(len(batch)),
		RowsFailed:  failed,
		Detail:      detailIf(failed, "rows with negative fare components"),
	}
}

func checkFareConsistency(batch []flight.StagedRecord) CheckResult {
	var failed int64

	for i := range batch {
		r := &batch[i]

		expected := r.BaseFare.Add(r.TaxSurcharge)
		if r.TotalFare.Sub(expected).Abs().GreaterThan(transform.FareTolerance) {
			failed++
		}
	}

	return CheckResult{
		Name:        "fare_consistency",
		Status:      escalate(int64(len(batch)), failed),
		RowsChecked: int64(len(batch)),
		RowsFailed:  failed,
		Detail:      detailIf(failed, "rows where total_fare drifts from base_fare + tax_surcharge"),
	}
}

func checkFareBounds(batch []flight.StagedRecord) CheckResult {
	var failed int64

	for i := range batch {
		if batch[i].TotalFare.GreaterThan(maxFareValue) {
			failed++
		}
	}

	status := StatusPassed
	if failed > 0 {
		status = StatusWarning
	}

	return CheckResult{
		Name:        "fare_bounds",
		Status:      status,
		RowsChecked: int64(len(batch)),
		RowsFailed:  failed,
		Detail:      detailIf(failed, fmt.Sprintf("rows with total_fare above %s", maxFareValue)),
	}
}

func checkCityNames(batch []flight.StagedRecord) CheckResult {
	var failed int64

	for i := range batch {
		r := &batch[i]
		if badCityName(r.Source) || badCityName(r.Destination) {
			failed++
		}
	}

	return CheckResult{
		Name:        "city_names",
		Status:      escalate(int64(len(batch)), failed),
		RowsChecked: int64(len(batch)),
		RowsFailed:  failed,
		Detail:      detailIf(failed, "rows with empty or digits-only city names"),
	}
}

// badCityName reports city values that carry no usable name: empty after
// trimming, or composed of digits only.
func badCityName(city string) bool {
	trimmed := strings.TrimSpace(city)
	if trimmed == "" {
		return true
	}

	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func checkDuplicateFingerprints(batch []flight.StagedRecord) CheckResult {
	seen := make(map[string]bool, len(batch))

	var failed int64

	for i := range batch {
		fp := batch[i].Fingerprint
		if fp == "" {
			continue
		}

		if seen[fp] {
			failed++
		}

		seen[fp] = true
	}

	status := StatusPassed
	if failed > 0 {
		// Duplicates are deduplicated by the transformer, so they only warn.
		status = StatusWarning
	}

	return CheckResult{
		Name:        "duplicate_fingerprints",
		Status:      status,
		RowsChecked: int64(len(batch)),
		RowsFailed:  failed,
		Detail:      detailIf(failed, "rows sharing an identity with an earlier row"),
	}
}

func checkSeasonLabels(batch []flight.StagedRecord) CheckResult {
	var failed int64

	for i := range batch {
		if batch[i].Season == transform.SeasonUnknown || batch[i].Season == "" {
			failed++
		}
	}

	status := StatusPassed
	if failed > 0 {
		status = StatusWarning
	}

	return CheckResult{
		Name:        "season_labels",
		Status:      status,
		RowsChecked: int64(len(batch)),
		RowsFailed:  failed,
		Detail:      detailIf(failed, "rows without a derived season label"),
	}
}

func detailIf(failed int64, message string) string {
	if failed == 0 {
		return ""
	}

	return fmt.Sprintf("%d %s", failed, message)
}

// FareBounds reports the min and max total fares in the batch, used by
// quality reporting
func FareBounds(batch []flight.StagedRecord) (minFare, maxFare decimal.Decimal) {
	if len(batch) == 0 {
		return decimal.Zero, decimal.Zero
	}

	minFare = batch[0].TotalFare
	maxFare = batch[0].TotalFare

	for i := 1; i < len(batch); i++ {
		minFare = decimal.Min(minFare, batch[i].TotalFare)
		maxFare = decimal.Max(maxFare, batch[i].TotalFare)
	}

	return minFare, maxFare
}
