package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DeafMist/metals-news-radar/internal/models"
)

type newsIndexer interface {
	IndexNews(ctx context.Context, item models.NewsItem) error
}

// Elasticsearch mirrors items into a search index.
type Elasticsearch struct {
	client newsIndexer
	log    *slog.Logger
}

// NewElasticsearch wraps an indexer such as *elasticsearch.Client.
func NewElasticsearch(client newsIndexer, log *slog.Logger) *Elasticsearch {
	return &Elasticsearch{client: client, log: log}
}

func (s *Elasticsearch) Name() string { return "elasticsearch" }

// Publish indexes every item and reports all failures together.
func (s *Elasticsearch) Publish(ctx context.Context, items []models.NewsItem) error {
	var errs []error
	for _, item := range items {
		if err := s.client.IndexNews(ctx, item); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", item.Fingerprint, err))
			continue
		}
		s.log.Debug("indexed news", slog.String("fingerprint", item.Fingerprint), slog.String("title", item.Title))
	}
	return errors.Join(errs...)
}
