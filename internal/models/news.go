package models

import "time"

// Category is one label of the fixed classification set.
type Category string

const (
	CategoryTradePolicy    Category = "trade-policy"
	CategoryPricing        Category = "pricing"
	CategoryProduction     Category = "production"
	CategorySustainability Category = "sustainability"
	CategoryInnovation     Category = "innovation"
	CategoryOther          Category = "other"
)

// Categories lists every label in classification priority order.
var Categories = []Category{
	CategoryTradePolicy,
	CategoryPricing,
	CategoryProduction,
	CategorySustainability,
	CategoryInnovation,
	CategoryOther,
}

// ParseCategory reports whether raw names a known category.
func ParseCategory(raw string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == raw {
			return c, true
		}
	}
	return "", false
}

// NewsItem is one retained news occurrence, the row type of the record store.
type NewsItem struct {
	Fingerprint string    `json:"fingerprint"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url,omitempty"`
	Category    Category  `json:"category"`
	Query       string    `json:"query,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Draft is a partially parsed candidate item produced by the extractor.
// PublishedAt is zero when no date could be read; DateOnly marks values
// that carried no time of day.
type Draft struct {
	Title       string
	Source      string
	PublishedAt time.Time
	DateOnly    bool
	Summary     string
	URL         string
}
