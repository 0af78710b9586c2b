package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/DeafMist/metals-news-radar/internal/atomicfile"
	"github.com/DeafMist/metals-news-radar/internal/models"
)

// ErrCorrupt marks a record store file that cannot be read back faithfully.
var ErrCorrupt = errors.New("record store corrupt")

// Columns is the header row of the record store file.
var Columns = []string{
	"fingerprint", "title", "source", "published_at", "summary",
	"url", "category", "query", "fetched_at",
}

// Store is the flat-file repository of retained news items. It is always read
// and written whole.
type Store struct {
	path string
}

// New returns a store backed by the CSV file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads every record. A missing or empty file is an empty store; any
// malformed content yields an error wrapping ErrCorrupt.
func (s *Store) Load() ([]models.NewsItem, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	defer f.Close()

	return decode(f)
}

// Save replaces the file with items, in the order given.
func (s *Store) Save(items []models.NewsItem) error {
	err := atomicfile.Write(s.path, 0o644, func(w io.Writer) error {
		return encode(w, items)
	})
	if err != nil {
		return fmt.Errorf("save record store: %w", err)
	}
	return nil
}

func decode(r io.Reader) ([]models.NewsItem, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if !slices.Equal(header, Columns) {
		return nil, fmt.Errorf("%w: unexpected header %q", ErrCorrupt, strings.Join(header, ","))
	}

	var items []models.NewsItem
	seen := make(map[string]struct{})
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

		line, _ := cr.FieldPos(0)
		it, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, line, err)
		}
		if _, dup := seen[it.Fingerprint]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate fingerprint %s", ErrCorrupt, line, it.Fingerprint)
		}
		seen[it.Fingerprint] = struct{}{}
		items = append(items, it)
	}

	return items, nil
}

func parseRow(row []string) (models.NewsItem, error) {
	it := models.NewsItem{
		Fingerprint: row[0],
		Title:       row[1],
		Source:      row[2],
		Summary:     row[4],
		URL:         row[5],
		Query:       row[7],
	}

	if it.Fingerprint == "" {
		return it, errors.New("empty fingerprint")
	}
	if strings.TrimSpace(it.Title) == "" {
		return it, errors.New("empty title")
	}

	published, err := time.Parse(time.RFC3339, row[3])
	if err != nil {
		return it, fmt.Errorf("published_at: %w", err)
	}
	it.PublishedAt = published.UTC()

	category, ok := models.ParseCategory(row[6])
	if !ok {
		return it, fmt.Errorf("unknown category %q", row[6])
	}
	it.Category = category

	if row[8] != "" {
		fetched, err := time.Parse(time.RFC3339, row[8])
		if err != nil {
			return it, fmt.Errorf("fetched_at: %w", err)
		}
		it.FetchedAt = fetched.UTC()
	}

	return it, nil
}

func encode(w io.Writer, items []models.NewsItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, it := range items {
		fetched := ""
		if !it.FetchedAt.IsZero() {
			fetched = it.FetchedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			it.Fingerprint,
			it.Title,
			it.Source,
			it.PublishedAt.UTC().Format(time.RFC3339),
			it.Summary,
			it.URL,
			string(it.Category),
			it.Query,
			fetched,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
