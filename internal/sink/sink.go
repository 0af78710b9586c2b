// Package sink publishes newly admitted news items to optional downstream systems.
package sink

import (
	"context"

	"github.com/DeafMist/metals-news-radar/internal/models"
)

// Sink receives the items a run added to the record store.
type Sink interface {
	Name() string
	Publish(ctx context.Context, items []models.NewsItem) error
}
