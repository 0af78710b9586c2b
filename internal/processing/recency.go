package processing

import (
	"time"

	"github.com/DeafMist/metals-news-radar/internal/models"
)

// ResolvePublishedAt fixes the timestamp an item is stored with:
//   - missing dates default to now;
//   - date-only values mean the end of that UTC day;
//   - anything later than now is clamped to now.
func ResolvePublishedAt(d models.Draft, now time.Time) time.Time {
	now = now.UTC()
	ts := d.PublishedAt
	if ts.IsZero() {
		return now
	}
	ts = ts.UTC()
	if d.DateOnly {
		ts = time.Date(ts.Year(), ts.Month(), ts.Day(), 23, 59, 59, 0, time.UTC)
	}
	if ts.After(now) {
		return now
	}
	return ts
}

// IsRecent reports whether ts lies inside the window ending at now.
// The cutoff itself is inside.
func IsRecent(ts, now time.Time, window time.Duration) bool {
	return !ts.Before(now.Add(-window))
}

// Recent applies the recency policy to a draft.
func Recent(d models.Draft, now time.Time, window time.Duration) bool {
	return IsRecent(ResolvePublishedAt(d, now), now, window)
}
