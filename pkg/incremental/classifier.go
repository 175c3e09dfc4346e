package incremental

import (
	"sort"

	"github.com/fareflow/fareflow/pkg/flight"
)

// ChangeSet is the result of classifying an incoming batch against the
// baseline. New and Unchanged together contain every classifiable record
// of the incoming batch, each exactly once; Deactivate holds the baseline
// fingerprints absent from the batch.
type ChangeSet struct {
	New            []flight.StagedRecord
	Unchanged      []flight.StagedRecord
	Deactivate     []string
	Unclassifiable int
}

// BaselineEmptied reports whether the classification wipes the entire
// baseline: a non-empty deactivate set with no surviving incoming
// records. A fully empty source file produces exactly this shape, so
// callers log it distinctly before acting on it.
func (c *ChangeSet) BaselineEmptied() bool {
	return len(c.Deactivate) > 0 && len(c.New) == 0 && len(c.Unchanged) == 0
}

// Classify partitions the incoming batch against the baseline:
//
//	new        = records whose fingerprint is absent from the baseline
//	unchanged  = records whose fingerprint is present in the baseline
//	deactivate = baseline fingerprints absent from the incoming batch
//
// Each incoming row is treated independently; duplicate fingerprints
// within the batch are not collapsed here (dedup belongs to the upstream
// cleaning step). Records carrying the empty-string fingerprint sentinel
// are unclassifiable and counted but excluded from both partitions.
// Membership tests are set lookups, so the whole pass is O(n + m).
func Classify(batch []flight.StagedRecord, baseline Baseline) ChangeSet {
	cs := ChangeSet{}

	seen := make(map[string]struct{}, len(batch))

	for i := range batch {
		fp := batch[i].Fingerprint
		if fp == "" {
			cs.Unclassifiable++
			continue
		}

		seen[fp] = struct{}{}

		if baseline.Contains(fp) {
			cs.Unchanged = append(cs.Unchanged, batch[i])
		} else {
			cs.New = append(cs.New, batch[i])
		}
	}

	for fp := range baseline {
		if _, ok := seen[fp]; !ok {
			cs.Deactivate = append(cs.Deactivate, fp)
		}
	}

	// Deterministic order for stable batching and logging
	sort.Strings(cs.Deactivate)

	return cs
}
