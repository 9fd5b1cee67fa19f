package appstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressPercent(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		newest time.Time
		want   int
	}{
		{"page dated today", now, 0},
		{"future date clamps to zero", now.Add(24 * time.Hour), 0},
		{"zero date reports no progress", time.Time{}, 0},
		{"date at the epoch caps at 99", time.Date(2012, 10, 21, 0, 0, 0, 0, time.UTC), 99},
		{"date before the epoch caps at 99", time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC), 99},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ProgressPercent(tc.newest, now))
		})
	}
}

func TestProgressPercent_MonotonicOverOlderPages(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	recent := ProgressPercent(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), now)
	older := ProgressPercent(time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC), now)

	assert.Greater(t, older, recent, "older pages mean the fetch is further along")
	assert.LessOrEqual(t, older, 99)
	assert.GreaterOrEqual(t, recent, 0)
}
