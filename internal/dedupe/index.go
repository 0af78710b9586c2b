package dedupe

import "github.com/DeafMist/metals-news-radar/internal/models"

// Index is the set of fingerprints already retained. Unlike a TTL cache it
// never forgets: membership lasts as long as the record stays in the store.
type Index struct {
	items map[string]struct{}
}

// NewIndex seeds an index with the fingerprints of existing records.
func NewIndex(existing []models.NewsItem) *Index {
	idx := &Index{items: make(map[string]struct{}, len(existing))}
	for _, it := range existing {
		idx.MarkSeen(it.Fingerprint)
	}
	return idx
}

// IsSeen returns true when the fingerprint is already retained.
func (i *Index) IsSeen(key string) bool {
	_, ok := i.items[key]
	return ok
}

// MarkSeen records a fingerprint.
func (i *Index) MarkSeen(key string) {
	i.items[key] = struct{}{}
}

// Len returns the number of distinct fingerprints.
func (i *Index) Len() int {
	return len(i.items)
}
