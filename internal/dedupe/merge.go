package dedupe

import (
	"sort"

	"github.com/samber/lo"

	"github.com/DeafMist/metals-news-radar/internal/models"
)

// MergeStats counts what one merge did to the batch and the store.
type MergeStats struct {
	Added      int
	Duplicates int
	Evicted    int
}

// Merge folds a classified batch into the previously persisted records:
// batch items whose fingerprint is already retained are dropped (first seen
// wins), later duplicates inside the batch are dropped, survivors are
// appended, the result is ordered newest first and cut to max records.
// prev is never modified. Items must already carry a fingerprint.
func Merge(prev, batch []models.NewsItem, max int) ([]models.NewsItem, MergeStats) {
	var stats MergeStats

	idx := NewIndex(prev)
	fresh := lo.Filter(batch, func(it models.NewsItem, _ int) bool {
		return !idx.IsSeen(it.Fingerprint)
	})
	unique := lo.UniqBy(fresh, func(it models.NewsItem) string {
		return it.Fingerprint
	})
	stats.Duplicates = len(batch) - len(unique)
	stats.Added = len(unique)

	out := make([]models.NewsItem, 0, len(prev)+len(unique))
	out = append(out, prev...)
	out = append(out, unique...)

	// Stable so that equal timestamps keep store order ahead of the new batch.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})

	if max > 0 && len(out) > max {
		stats.Evicted = len(out) - max
		out = out[:max]
	}

	return out, stats
}
