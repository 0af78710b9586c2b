package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned when the answer API credential is absent.
var ErrMissingAPIKey = errors.New("PERPLEXITY_API_KEY is not set")

// Common contains the file locations and optional Elasticsearch mirror shared by every binary.
type Common struct {
	StorePath          string
	FeedPath           string
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Feed describes the fixed channel metadata of the published document.
type Feed struct {
	Title       string
	Link        string
	Description string
}

// Worker holds configuration for the fetch -> classify -> store -> feed pipeline.
type Worker struct {
	Common
	Feed          Feed
	APIKey        string
	Endpoint      string
	Model         string
	QueryTimeout  time.Duration
	QueryInterval time.Duration
	QueriesFile   string
	Queries       []string
	MaxRecords    int
	RecencyWindow time.Duration
	SummaryMaxLen int
	CronSpec      string
	KafkaBrokers  []string
	KafkaTopic    string
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr    string
	DefaultPage int
	MaxPage     int
}

// Retention configures the mirror cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// LoadCommon reads the settings shared by every binary. It never fails.
func LoadCommon() Common {
	return Common{
		StorePath:          getEnv("STORE_PATH", "data/aluminum_news.csv"),
		FeedPath:           getEnv("FEED_PATH", "data/aluminum_news.rss"),
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", ""),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "metals_news"),
	}
}

// LoadWorker builds a Worker config from environment variables.
// The credential is checked first so a missing key fails before anything else is touched.
func LoadWorker() (*Worker, error) {
	apiKey := strings.TrimSpace(os.Getenv("PERPLEXITY_API_KEY"))
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Worker{
		Common: LoadCommon(),
		Feed: Feed{
			Title:       getEnv("FEED_TITLE", "Metals Industry News"),
			Link:        getEnv("FEED_LINK", "https://example.com/metals-news"),
			Description: getEnv("FEED_DESCRIPTION", "Daily aluminum, steel, copper and nickel industry news"),
		},
		APIKey:        apiKey,
		Endpoint:      getEnv("PERPLEXITY_ENDPOINT", "https://api.perplexity.ai/chat/completions"),
		Model:         getEnv("PERPLEXITY_MODEL", "sonar"),
		QueryTimeout:  getDuration("QUERY_TIMEOUT", "30s"),
		QueryInterval: getDuration("QUERY_INTERVAL", "2s"),
		QueriesFile:   getEnv("QUERIES_FILE", ""),
		MaxRecords:    getInt("STORE_MAX_RECORDS", 500),
		RecencyWindow: getDuration("RECENCY_WINDOW", "24h"),
		SummaryMaxLen: getInt("SUMMARY_MAX_LEN", 500),
		CronSpec:      getEnv("CRON_SPEC", "0 6 * * *"),
		KafkaBrokers:  splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "metals_news"),
	}

	queries := DefaultQueries
	if c.QueriesFile != "" {
		loaded, err := LoadQueries(c.QueriesFile)
		if err != nil {
			return nil, err
		}
		queries = loaded
	}
	if err := ValidateQueries(queries); err != nil {
		return nil, err
	}
	c.Queries = queries

	if c.QueryTimeout <= 0 {
		return nil, fmt.Errorf("QUERY_TIMEOUT must be positive")
	}
	if c.QueryInterval < 0 {
		return nil, fmt.Errorf("QUERY_INTERVAL cannot be negative")
	}
	if c.MaxRecords <= 0 {
		return nil, fmt.Errorf("STORE_MAX_RECORDS must be positive")
	}
	if c.RecencyWindow <= 0 {
		return nil, fmt.Errorf("RECENCY_WINDOW must be positive")
	}
	if c.SummaryMaxLen <= 0 {
		return nil, fmt.Errorf("SUMMARY_MAX_LEN must be positive")
	}
	if c.StorePath == "" || c.FeedPath == "" {
		return nil, fmt.Errorf("STORE_PATH and FEED_PATH must be set")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:      LoadCommon(),
		BindAddr:    getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage: getInt("API_PAGE_SIZE", 20),
		MaxPage:     getInt("API_MAX_PAGE_SIZE", 100),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    LoadCommon(),
		Interval:  getDuration("RETENTION_INTERVAL", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.ElasticsearchAddr == "" {
		return nil, fmt.Errorf("ELASTICSEARCH_ADDR must be set for retention")
	}
	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
