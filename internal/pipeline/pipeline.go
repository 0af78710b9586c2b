// Package pipeline drives one fetch, extract, filter, classify, merge and publish run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/DeafMist/metals-news-radar/internal/answer"
	"github.com/DeafMist/metals-news-radar/internal/dedupe"
	"github.com/DeafMist/metals-news-radar/internal/feed"
	"github.com/DeafMist/metals-news-radar/internal/models"
	"github.com/DeafMist/metals-news-radar/internal/processing"
	"github.com/DeafMist/metals-news-radar/internal/sink"
	"github.com/DeafMist/metals-news-radar/internal/store"
)

// ErrAllQueriesFailed is returned when no query produced an answer. Neither
// the record store nor the feed document is touched in that case.
var ErrAllQueriesFailed = errors.New("all queries failed")

// Asker answers one free-text query.
type Asker interface {
	Ask(ctx context.Context, query string) (*answer.Answer, error)
}

// Options are the per-run knobs.
type Options struct {
	Queries       []string
	QueryInterval time.Duration
	RecencyWindow time.Duration
	MaxRecords    int
	SummaryMaxLen int
	FeedPath      string
	Feed          feed.Meta
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result summarises one run.
type Result struct {
	RunID         string
	QueriesOK     int
	QueriesFailed int
	Drafts        int
	Stale         int
	Dropped       int
	Added         int
	Duplicates    int
	Evicted       int
	Total         int
	SinkFailures  int
	Categories    map[models.Category]int
	// New holds the items admitted by this run, newest first.
	New []models.NewsItem
}

// Runner owns the record store for the duration of a run.
type Runner struct {
	asker Asker
	store *store.Store
	sinks []sink.Sink
	opts  Options
	log   *slog.Logger
}

// New wires a runner. Sinks are optional.
func New(asker Asker, st *store.Store, opts Options, log *slog.Logger, sinks ...sink.Sink) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{asker: asker, store: st, sinks: sinks, opts: opts, log: log}
}

// Run executes the whole pipeline once.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	log := r.log.With(slog.String("run_id", res.RunID))

	// The store is read before any network call so a corrupt file aborts early.
	prev, err := r.store.Load()
	if err != nil {
		return res, fmt.Errorf("load record store: %w", err)
	}
	log.Info("run started", slog.Int("queries", len(r.opts.Queries)), slog.Int("stored", len(prev)))

	answers, err := r.ask(ctx, log, &res)
	if err != nil {
		return res, err
	}
	if res.QueriesOK == 0 {
		log.Error("no query succeeded, outputs left untouched", slog.Int("failed", res.QueriesFailed))
		return res, ErrAllQueriesFailed
	}

	now := r.opts.Now().UTC().Truncate(time.Second)
	batch := r.buildItems(log, answers, now, &res)

	merged, stats := dedupe.Merge(prev, batch, r.opts.MaxRecords)
	res.Added, res.Duplicates, res.Evicted = stats.Added, stats.Duplicates, stats.Evicted
	res.Total = len(merged)

	if err := r.store.Save(merged); err != nil {
		return res, fmt.Errorf("save record store: %w", err)
	}
	if err := feed.Write(r.opts.FeedPath, r.opts.Feed, merged, now); err != nil {
		return res, err
	}

	known := dedupe.NewIndex(prev)
	res.New = lo.Filter(merged, func(it models.NewsItem, _ int) bool {
		return !known.IsSeen(it.Fingerprint)
	})
	res.Categories = lo.CountValuesBy(res.New, func(it models.NewsItem) models.Category {
		return it.Category
	})

	r.publish(ctx, log, res.New, &res)

	attrs := []any{
		slog.Int("queries_ok", res.QueriesOK),
		slog.Int("queries_failed", res.QueriesFailed),
		slog.Int("drafts", res.Drafts),
		slog.Int("stale", res.Stale),
		slog.Int("dropped", res.Dropped),
		slog.Int("added", res.Added),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("evicted", res.Evicted),
		slog.Int("total", res.Total),
	}
	for _, c := range models.Categories {
		if n := res.Categories[c]; n > 0 {
			attrs = append(attrs, slog.Int("category_"+string(c), n))
		}
	}
	if res.QueriesFailed > 0 {
		log.Warn("run finished with failed queries", attrs...)
	} else {
		log.Info("run finished", attrs...)
	}

	return res, nil
}

func (r *Runner) ask(ctx context.Context, log *slog.Logger, res *Result) ([]*answer.Answer, error) {
	answers := make([]*answer.Answer, 0, len(r.opts.Queries))
	for i, q := range r.opts.Queries {
		if i > 0 && r.opts.QueryInterval > 0 {
			if err := sleep(ctx, r.opts.QueryInterval); err != nil {
				return nil, err
			}
		}

		ans, err := r.asker.Ask(ctx, q)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			res.QueriesFailed++
			log.Warn("query failed", slog.String("query", q), slog.Any("err", err))
			continue
		}
		res.QueriesOK++
		answers = append(answers, ans)
	}
	return answers, nil
}

func (r *Runner) buildItems(log *slog.Logger, answers []*answer.Answer, now time.Time, res *Result) []models.NewsItem {
	var batch []models.NewsItem
	for _, ans := range answers {
		for d := range processing.ExtractItems(ans.Text, ans.Citations) {
			res.Drafts++

			publishedAt := processing.ResolvePublishedAt(d, now).Truncate(time.Second)
			if !processing.IsRecent(publishedAt, now, r.opts.RecencyWindow) {
				res.Stale++
				log.Debug("stale item", slog.String("title", d.Title), slog.Time("published_at", publishedAt))
				continue
			}

			fp := processing.Fingerprint(d.Title, d.URL, d.Source)
			if fp == "" {
				res.Dropped++
				log.Debug("item without fingerprint", slog.String("title", d.Title))
				continue
			}

			summary := processing.Truncate(d.Summary, r.opts.SummaryMaxLen)
			batch = append(batch, models.NewsItem{
				Fingerprint: fp,
				Title:       d.Title,
				Source:      d.Source,
				PublishedAt: publishedAt,
				Summary:     summary,
				URL:         d.URL,
				Category:    processing.Classify(d.Title, summary),
				Query:       ans.Query,
				FetchedAt:   now,
			})
		}
	}
	return batch
}

func (r *Runner) publish(ctx context.Context, log *slog.Logger, items []models.NewsItem, res *Result) {
	if len(items) == 0 {
		return
	}
	for _, s := range r.sinks {
		if err := s.Publish(ctx, items); err != nil {
			res.SinkFailures++
			log.Warn("sink publish failed", slog.String("sink", s.Name()), slog.Any("err", err))
			continue
		}
		log.Info("sink published", slog.String("sink", s.Name()), slog.Int("items", len(items)))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
