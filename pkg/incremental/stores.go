// Package incremental implements the incremental load and change-tracking
// subsystem: classification of fingerprinted batches against a baseline,
// the load strategy decision, and the batched write path into the staging
// and analytics stores.
package incremental

import (
	"context"

	"github.com/fareflow/fareflow/pkg/flight"
)

// Baseline is the set of fingerprints marked active in the staging store
// at the start of a run. It is read once per run and never mutated in
// place.
type Baseline map[string]struct{}

// NewBaseline builds a Baseline from a list of fingerprints
func NewBaseline(fingerprints []string) Baseline {
	b := make(Baseline, len(fingerprints))
	for _, fp := range fingerprints {
		b[fp] = struct{}{}
	}

	return b
}

// Contains reports whether the fingerprint is part of the baseline
func (b Baseline) Contains(fingerprint string) bool {
	_, ok := b[fingerprint]
	return ok
}

// StagingStore is the staging-side storage capability the classifier and
// writer operate against. Implementations are injected explicitly; the
// package holds no ambient connections.
type StagingStore interface {
	// ReadActiveFingerprints returns the set of fingerprints currently
	// flagged active. An empty set is valid (first run).
	ReadActiveFingerprints(ctx context.Context) (Baseline, error)

	// InsertBatch inserts one bounded batch of staged records
	InsertBatch(ctx context.Context, records []flight.StagedRecord) error

	// Deactivate flips the active flag off for the given fingerprints and
	// returns how many rows were affected
	Deactivate(ctx context.Context, fingerprints []string) (int64, error)

	// Truncate removes all staged records (full-refresh path only)
	Truncate(ctx context.Context) error
}

// AnalyticsStore is the downstream storage capability the writer upserts
// transformed records into.
type AnalyticsStore interface {
	// UpsertBatch inserts or updates one bounded batch keyed on the
	// record identity, returning inserted and updated row counts
	UpsertBatch(ctx context.Context, records []flight.AnalyticsRecord) (inserted, updated int64, err error)

	// DeactivateByFingerprint propagates staging inactivity downstream
	DeactivateByFingerprint(ctx context.Context, fingerprints []string) (int64, error)

	// Truncate removes all analytics records (full-refresh path only)
	Truncate(ctx context.Context) error
}
