package incremental

import (
	"errors"
	"time"
)

// Define static errors
var (
	// ErrInvalidFullRefreshDay is returned when the configured day is outside 0-6
	ErrInvalidFullRefreshDay = errors.New("full refresh day must be between 0 (Sunday) and 6 (Saturday)")
)

// LoadMode is the per-run load strategy
type LoadMode string

const (
	// LoadModeFullRefresh truncates staging and reloads the whole batch
	LoadModeFullRefresh LoadMode = "FULL_REFRESH"
	// LoadModeIncremental classifies against the baseline and upserts
	LoadModeIncremental LoadMode = "INCREMENTAL"
)

// Strategy decides the load mode for a run. The decision is stateless
// and evaluated once per run; nothing is persisted between runs.
type Strategy struct {
	enabled        bool
	fullRefreshDay time.Weekday
}

// NewStrategy builds a Strategy. fullRefreshDay uses the source
// convention of Sunday = 0, which is also Go's native time.Weekday
// numbering, so the configured integer maps directly.
func NewStrategy(enabled bool, fullRefreshDay int) (*Strategy, error) {
	if fullRefreshDay < 0 || fullRefreshDay > 6 {
		return nil, ErrInvalidFullRefreshDay
	}

	return &Strategy{
		enabled:        enabled,
		fullRefreshDay: time.Weekday(fullRefreshDay),
	}, nil
}

// Select returns the load mode for a run starting at now. Rules, in
// order: incremental loading disabled forces a full refresh; the weekly
// full-refresh day forces a full refresh even with the flag enabled;
// otherwise the run is incremental.
func (s *Strategy) Select(now time.Time) LoadMode {
	if !s.enabled {
		return LoadModeFullRefresh
	}

	if now.Weekday() == s.fullRefreshDay {
		return LoadModeFullRefresh
	}

	return LoadModeIncremental
}
