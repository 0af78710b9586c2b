package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/DeafMist/metals-news-radar/internal/answer"
	"github.com/DeafMist/metals-news-radar/internal/config"
	"github.com/DeafMist/metals-news-radar/internal/elasticsearch"
	"github.com/DeafMist/metals-news-radar/internal/feed"
	"github.com/DeafMist/metals-news-radar/internal/logger"
	"github.com/DeafMist/metals-news-radar/internal/models"
	"github.com/DeafMist/metals-news-radar/internal/pipeline"
	"github.com/DeafMist/metals-news-radar/internal/sink"
	"github.com/DeafMist/metals-news-radar/internal/store"
)

func main() {
	log := logger.New("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newApp(log).RunContext(ctx, os.Args); err != nil {
		log.Error("worker failed", slog.Any("err", err))
		stop()
		os.Exit(1)
	}
}

func newApp(log *slog.Logger) *cli.App {
	run := runCmd(log)

	return &cli.App{
		Name:  "worker",
		Usage: "collect metals industry news into a record store and an RSS feed",
		Description: `Queries the answer API, keeps the recent items it reports, classifies
		them and merges them into the record store, then regenerates the RSS feed.

		Without a command the worker performs one run, exactly like "worker run".
		Configuration comes from environment variables, optionally seeded from --env-file.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Value:   ".env",
				Usage:   "dotenv file to load before reading configuration",
				EnvVars: []string{"ENV_FILE"},
			},
		},
		Before: func(ctx *cli.Context) error {
			return loadEnvFile(ctx.String("env-file"))
		},
		Commands: []*cli.Command{
			run,
			scheduleCmd(log),
			statsCmd(),
		},
		Action: run.Action,
	}
}

func runCmd(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run the pipeline once",
		Action: func(ctx *cli.Context) error {
			return runOnce(ctx.Context, log)
		},
	}
}

func scheduleCmd(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "stay running and trigger the pipeline on CRON_SPEC",
		Action: func(ctx *cli.Context) error {
			return schedule(ctx.Context, log)
		},
	}
}

func statsCmd() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print per-category counts of the record store",
		Action: func(ctx *cli.Context) error {
			return printStats(ctx.App.Writer, store.New(config.LoadCommon().StorePath))
		},
	}
}

// loadEnvFile applies a dotenv file without overriding variables already set.
// A missing file is fine.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func runOnce(ctx context.Context, log *slog.Logger) error {
	cfg, err := config.LoadWorker()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	runner, cleanup := buildRunner(ctx, cfg, log)
	defer cleanup()

	_, err = runner.Run(ctx)
	return err
}

func schedule(ctx context.Context, log *slog.Logger) error {
	cfg, err := config.LoadWorker()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	runner, cleanup := buildRunner(ctx, cfg, log)
	defer cleanup()

	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(cfg.CronSpec, func() {
		if _, err := runner.Run(ctx); err != nil {
			log.Error("scheduled run failed", slog.Any("err", err))
		}
	}); err != nil {
		return fmt.Errorf("parse CRON_SPEC %q: %w", cfg.CronSpec, err)
	}

	c.Start()
	log.Info("scheduler started", slog.String("spec", cfg.CronSpec))

	<-ctx.Done()
	log.Info("shutdown signal received")
	<-c.Stop().Done()
	return nil
}

// buildRunner wires the pipeline with whichever optional sinks are configured.
// Sinks that cannot be reached at startup are skipped for this process.
func buildRunner(ctx context.Context, cfg *config.Worker, log *slog.Logger) (*pipeline.Runner, func()) {
	var (
		sinks    []sink.Sink
		closers  []func() error
		asker    = answer.New(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.QueryTimeout, log)
		recorder = store.New(cfg.StorePath)
	)

	if cfg.ElasticsearchAddr != "" {
		if s, err := elasticsearchSink(ctx, cfg, log); err != nil {
			log.Warn("elasticsearch sink disabled", slog.Any("err", err))
		} else {
			sinks = append(sinks, s)
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		w := sink.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, w.Close)
		sinks = append(sinks, sink.NewKafka(w, cfg.KafkaTopic))
	}

	runner := pipeline.New(asker, recorder, pipeline.Options{
		Queries:       cfg.Queries,
		QueryInterval: cfg.QueryInterval,
		RecencyWindow: cfg.RecencyWindow,
		MaxRecords:    cfg.MaxRecords,
		SummaryMaxLen: cfg.SummaryMaxLen,
		FeedPath:      cfg.FeedPath,
		Feed: feed.Meta{
			Title:       cfg.Feed.Title,
			Link:        cfg.Feed.Link,
			Description: cfg.Feed.Description,
		},
	}, log, sinks...)

	cleanup := func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn("close sink", slog.Any("err", err))
			}
		}
	}
	return runner, cleanup
}

func elasticsearchSink(ctx context.Context, cfg *config.Worker, log *slog.Logger) (sink.Sink, error) {
	client, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		return nil, err
	}
	if err := client.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return sink.NewElasticsearch(client, log), nil
}

func printStats(w io.Writer, st *store.Store) error {
	items, err := st.Load()
	if err != nil {
		return err
	}

	counts := lo.CountValuesBy(items, func(it models.NewsItem) models.Category {
		return it.Category
	})

	fmt.Fprintf(w, "store: %s\n", st.Path())
	fmt.Fprintf(w, "total: %d\n", len(items))
	if len(items) > 0 {
		fmt.Fprintf(w, "newest: %s\n", items[0].PublishedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(w, "oldest: %s\n", items[len(items)-1].PublishedAt.UTC().Format(time.RFC3339))
	}
	for _, c := range models.Categories {
		fmt.Fprintf(w, "%-15s %d\n", c, counts[c])
	}
	return nil
}

// cronLogger routes robfig/cron's logging into slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append([]any{slog.Any("err", err)}, keysAndValues...)...)
}
