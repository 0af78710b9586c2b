// Package feed renders the record store as an RSS 2.0 document.
package feed

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"

	"github.com/DeafMist/metals-news-radar/internal/atomicfile"
	"github.com/DeafMist/metals-news-radar/internal/models"
)

// Meta is the channel metadata; it never depends on the items.
type Meta struct {
	Title       string
	Link        string
	Description string
}

// Render builds the document for items, which are expected newest first.
// buildTime becomes the channel's lastBuildDate.
func Render(meta Meta, items []models.NewsItem, buildTime time.Time) ([]byte, error) {
	f := &feeds.Feed{
		Title:       meta.Title,
		Link:        &feeds.Link{Href: meta.Link},
		Description: meta.Description,
		Created:     buildTime,
		Updated:     buildTime,
		Items:       make([]*feeds.Item, 0, len(items)),
	}

	for _, it := range items {
		link := it.URL
		if link == "" {
			link = meta.Link
		}
		f.Items = append(f.Items, &feeds.Item{
			Title:       it.Title,
			Link:        &feeds.Link{Href: link},
			Description: Description(it),
			Id:          it.Fingerprint,
			IsPermaLink: "false",
			Created:     it.PublishedAt,
		})
	}

	doc, err := f.ToRss()
	if err != nil {
		return nil, fmt.Errorf("render rss: %w", err)
	}
	return []byte(doc), nil
}

// Description is the category-prefixed entry text.
func Description(it models.NewsItem) string {
	desc := "[" + string(it.Category) + "]"
	if it.Summary != "" {
		desc += " " + it.Summary
	}
	if it.Source != "" {
		desc += " (" + it.Source + ")"
	}
	return desc
}

// Write renders items and atomically replaces the document at path.
func Write(path string, meta Meta, items []models.NewsItem, buildTime time.Time) error {
	doc, err := Render(meta, items, buildTime)
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	return nil
}
