package incremental

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/fareflow/fareflow/pkg/flight"
)

// Define static errors
var (
	// ErrInvalidBatchSize is returned when the configured batch size is not positive
	ErrInvalidBatchSize = errors.New("batch size must be positive")
)

// Report accumulates the row-level outcome of a write pass. Per-batch
// failures are absorbed into Failed rather than aborting the run.
type Report struct {
	Inserted    int64
	Updated     int64
	Unchanged   int64
	Deactivated int64
	Failed      int64
}

// Merge folds another report into this one
func (r *Report) Merge(other Report) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Unchanged += other.Unchanged
	r.Deactivated += other.Deactivated
	r.Failed += other.Failed
}

// Writer performs the batched write path of a run: staging inserts,
// staging deactivation, and analytics upserts. Batches are written
// sequentially; batch i+1 starts only after batch i completes, trading
// parallelism for batch-level error isolation.
type Writer struct {
	log       logrus.FieldLogger
	staging   StagingStore
	analytics AnalyticsStore
	batchSize int
}

// NewWriter creates a Writer over the given store capabilities
func NewWriter(log logrus.FieldLogger, staging StagingStore, analytics AnalyticsStore, batchSize int) (*Writer, error) {
	if batchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}

	return &Writer{
		log:       log.WithField("component", "incremental-writer"),
		staging:   staging,
		analytics: analytics,
		batchSize: batchSize,
	}, nil
}

// ApplyStaging applies a classified change set to the staging store:
// new records are inserted in bounded batches and vanished fingerprints
// are deactivated in bounded chunks. A failed insert batch is counted
// and skipped; a failed deactivation chunk does not stop the remaining
// chunks. Unchanged records are counted but never rewritten.
func (w *Writer) ApplyStaging(ctx context.Context, changes *ChangeSet) Report {
	report := Report{Unchanged: int64(len(changes.Unchanged))}

	if changes.BaselineEmptied() {
		w.log.WithField("baseline_size", len(changes.Deactivate)).
			Warn("Incoming batch is empty; deactivating the entire baseline")
	}

	if changes.Unclassifiable > 0 {
		w.log.WithField("count", changes.Unclassifiable).
			Warn("Skipping unclassifiable records without fingerprints")
	}

	for start := 0; start < len(changes.New); start += w.batchSize {
		end := min(start+w.batchSize, len(changes.New))
		batch := changes.New[start:end]

		if err := w.staging.InsertBatch(ctx, batch); err != nil {
			report.Failed += int64(len(batch))
			w.log.WithError(err).WithFields(logrus.Fields{
				"batch_start": start,
				"batch_size":  len(batch),
			}).Error("Staging insert batch failed")

			continue
		}

		report.Inserted += int64(len(batch))
	}

	report.Deactivated = w.deactivate(ctx, changes.Deactivate)

	return report
}

// deactivate flips the active flag off in bounded chunks, best effort:
// one failed chunk is logged and the remaining chunks are still
// attempted. Chunking keeps each statement under parameter-count limits
// of the underlying store.
func (w *Writer) deactivate(ctx context.Context, fingerprints []string) int64 {
	var deactivated int64

	for start := 0; start < len(fingerprints); start += w.batchSize {
		end := min(start+w.batchSize, len(fingerprints))
		chunk := fingerprints[start:end]

		count, err := w.staging.Deactivate(ctx, chunk)
		if err != nil {
			w.log.WithError(err).WithFields(logrus.Fields{
				"chunk_start": start,
				"chunk_size":  len(chunk),
			}).Error("Deactivation chunk failed")

			continue
		}

		deactivated += count
	}

	return deactivated
}

// FullRefresh truncates the staging store and bulk-loads the whole batch
// in bounded batches. Truncation failure is fatal (the stage cannot
// safely proceed on stale data); individual batch failures afterwards
// are absorbed into the report like the incremental path.
func (w *Writer) FullRefresh(ctx context.Context, records []flight.StagedRecord) (Report, error) {
	if err := w.staging.Truncate(ctx); err != nil {
		return Report{}, err
	}

	report := Report{}

	for start := 0; start < len(records); start += w.batchSize {
		end := min(start+w.batchSize, len(records))
		batch := records[start:end]

		if err := w.staging.InsertBatch(ctx, batch); err != nil {
			report.Failed += int64(len(batch))
			w.log.WithError(err).WithField("batch_start", start).Error("Full-refresh insert batch failed")

			continue
		}

		report.Inserted += int64(len(batch))
	}

	return report, nil
}

// UpsertAnalytics writes transformed records to the analytics store in
// bounded batches. On identity conflict the store updates mutable
// fields, bumps the version number, and refreshes the last-updated
// timestamp; otherwise it inserts version 1. Failed batches are counted
// and the remaining batches still run.
func (w *Writer) UpsertAnalytics(ctx context.Context, records []flight.AnalyticsRecord) Report {
	report := Report{}

	for start := 0; start < len(records); start += w.batchSize {
		end := min(start+w.batchSize, len(records))
		batch := records[start:end]

		inserted, updated, err := w.analytics.UpsertBatch(ctx, batch)
		if err != nil {
			report.Failed += int64(len(batch))
			w.log.WithError(err).WithField("batch_start", start).Error("Analytics upsert batch failed")

			continue
		}

		report.Inserted += inserted
		report.Updated += updated
	}

	return report
}

// PropagateInactivity deactivates analytics records whose staging
// counterparts went inactive. Chunked and best effort, mirroring the
// staging deactivation path.
func (w *Writer) PropagateInactivity(ctx context.Context, fingerprints []string) int64 {
	var deactivated int64

	for start := 0; start < len(fingerprints); start += w.batchSize {
		end := min(start+w.batchSize, len(fingerprints))
		chunk := fingerprints[start:end]

		count, err := w.analytics.DeactivateByFingerprint(ctx, chunk)
		if err != nil {
			w.log.WithError(err).WithField("chunk_start", start).Error("Analytics deactivation chunk failed")
			continue
		}

		deactivated += count
	}

	return deactivated
}
