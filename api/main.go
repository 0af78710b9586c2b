package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"

	"github.com/DeafMist/metals-news-radar/internal/config"
	"github.com/DeafMist/metals-news-radar/internal/elasticsearch"
	"github.com/DeafMist/metals-news-radar/internal/logger"
	"github.com/DeafMist/metals-news-radar/internal/models"
	"github.com/DeafMist/metals-news-radar/internal/store"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	srv := &server{log: log, cfg: cfg, store: store.New(cfg.StorePath)}
	if cfg.ElasticsearchAddr != "" {
		esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			log.Error("init elasticsearch", slog.Any("err", err))
			os.Exit(1)
		}
		srv.es = esClient
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr), slog.Bool("search", srv.es != nil))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type searcher interface {
	SearchNews(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
	Health(ctx context.Context) error
}

type server struct {
	log   *slog.Logger
	cfg   *config.API
	store *store.Store
	// es is nil when no mirror is configured.
	es searcher
}

type errorResponse struct {
	Error string `json:"error"`
}

type newsResponse struct {
	Total int               `json:"total"`
	Items []models.NewsItem `json:"items"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/feed.xml", s.handleFeed)
	r.Get("/news", s.handleNews)
	r.Get("/search", s.handleSearch)
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Load(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	if s.es != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.es.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleFeed(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.cfg.FeedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "feed not generated yet"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	http.ServeContent(w, r, "feed.xml", info.ModTime(), f)
}

func (s *server) handleNews(w http.ResponseWriter, r *http.Request) {
	category := models.Category("")
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		c, ok := models.ParseCategory(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown category " + strconv.Quote(raw)})
			return
		}
		category = c
	}
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	limit := clampInt(r.URL.Query().Get("limit"), s.cfg.DefaultPage, s.cfg.MaxPage)
	offset := clampInt(r.URL.Query().Get("offset"), 0, 1<<30)

	items, err := s.store.Load()
	if err != nil {
		s.log.Error("load record store", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	matched := lo.Filter(items, func(it models.NewsItem, _ int) bool {
		if category != "" && it.Category != category {
			return false
		}
		if query != "" && !strings.Contains(strings.ToLower(it.Title+" "+it.Summary), query) {
			return false
		}
		return true
	})

	page := []models.NewsItem{}
	if offset < len(matched) {
		page = matched[offset:min(offset+limit, len(matched))]
	}

	writeJSON(w, http.StatusOK, newsResponse{Total: len(matched), Items: page})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.es == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "search index not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	params := elasticsearch.SearchParams{
		Query:  strings.TrimSpace(r.URL.Query().Get("q")),
		Source: strings.TrimSpace(r.URL.Query().Get("source")),
		From:   clampInt(r.URL.Query().Get("from"), 0, 10_000),
		Size:   clampInt(r.URL.Query().Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Start:  parseTime(r.URL.Query().Get("start")),
		End:    parseTime(r.URL.Query().Get("end")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		c, ok := models.ParseCategory(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown category " + strconv.Quote(raw)})
			return
		}
		params.Category = c
	}

	result, err := s.es.SearchNews(ctx, params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
