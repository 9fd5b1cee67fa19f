package appstore

import "time"

// The history is paginated newest-first, so the newest date on the
// current page tells roughly how far back into the account's lifetime
// the fetch has reached. The epoch is just a date old enough to predate
// nearly every account.
var progressEpoch = time.Date(2012, time.October, 21, 0, 0, 0, 0, time.UTC)

// ProgressPercent estimates completion from the purchase date of the
// most recently fetched batch. Returns 0-99; 100 is reported by the
// caller only on actual completion.
func ProgressPercent(newest, now time.Time) int {
	span := now.Sub(progressEpoch)
	if span <= 0 || newest.IsZero() {
		return 0
	}

	percent := int(float64(now.Sub(newest)) / float64(span) * 100)
	if percent < 0 {
		percent = 0
	}
	if percent > 99 {
		percent = 99
	}
	return percent
}
