package incremental

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-07 is a Sunday; the following days walk the week.
func dayOfWeek(weekday time.Weekday) time.Time {
	return time.Date(2024, 1, 7+int(weekday), 12, 0, 0, 0, time.UTC)
}

func TestNewStrategy_Validation(t *testing.T) {
	_, err := NewStrategy(true, -1)
	assert.ErrorIs(t, err, ErrInvalidFullRefreshDay)

	_, err = NewStrategy(true, 7)
	assert.ErrorIs(t, err, ErrInvalidFullRefreshDay)

	_, err = NewStrategy(true, 0)
	assert.NoError(t, err)

	_, err = NewStrategy(false, 6)
	assert.NoError(t, err)
}

func TestStrategy_Select(t *testing.T) {
	tests := []struct {
		name           string
		enabled        bool
		fullRefreshDay int
		now            time.Time
		want           LoadMode
	}{
		{
			name:           "disabled flag always forces full refresh",
			enabled:        false,
			fullRefreshDay: 0,
			now:            dayOfWeek(time.Wednesday),
			want:           LoadModeFullRefresh,
		},
		{
			name:           "refresh day forces full refresh even when enabled",
			enabled:        true,
			fullRefreshDay: 0,
			now:            dayOfWeek(time.Sunday),
			want:           LoadModeFullRefresh,
		},
		{
			name:           "enabled on a regular day is incremental",
			enabled:        true,
			fullRefreshDay: 0,
			now:            dayOfWeek(time.Monday),
			want:           LoadModeIncremental,
		},
		{
			name:           "day zero means Sunday not Monday",
			enabled:        true,
			fullRefreshDay: 0,
			now:            dayOfWeek(time.Monday),
			want:           LoadModeIncremental,
		},
		{
			name:           "saturday refresh day",
			enabled:        true,
			fullRefreshDay: 6,
			now:            dayOfWeek(time.Saturday),
			want:           LoadModeFullRefresh,
		},
		{
			name:           "disabled on the refresh day is still full refresh",
			enabled:        false,
			fullRefreshDay: 3,
			now:            dayOfWeek(time.Wednesday),
			want:           LoadModeFullRefresh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStrategy(tt.enabled, tt.fullRefreshDay)
			require.NoError(t, err)

			assert.Equal(t, tt.want, s.Select(tt.now))
		})
	}
}

// The decision is stateless: repeated evaluation with the same clock
// always yields the same mode.
func TestStrategy_SelectIsStateless(t *testing.T) {
	s, err := NewStrategy(true, 0)
	require.NoError(t, err)

	now := dayOfWeek(time.Friday)
	for i := 0; i < 5; i++ {
		assert.Equal(t, LoadModeIncremental, s.Select(now))
	}
}
