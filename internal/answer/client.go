package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DeafMist/metals-news-radar/internal/logger"
)

const (
	maxResponseBytes = 1 << 20
	maxErrorBody     = 512
)

const systemPrompt = `You are a metals industry news desk. Report only news published in the last 24 hours.
Answer with a markdown bullet list, one news item per bullet, in this exact shape:
- **Headline** (Publication, YYYY-MM-DD): one or two sentence summary [n]
where [n] cites the source. If there is no recent news, answer "No recent news."`

// Answer is the text returned for one query together with its sources.
type Answer struct {
	Query     string
	Text      string
	Citations []string
	Results   []SearchResult
}

// SearchResult is one source the answer engine consulted.
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("answer api status %d: %s", e.StatusCode, e.Body)
}

// Client talks to a chat-completions style answer endpoint.
type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string
	model    string
	log      *slog.Logger
}

// New builds a client; timeout bounds every single request.
func New(endpoint, apiKey, model string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		log:      log,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model               string    `json:"model"`
	Messages            []message `json:"messages"`
	SearchRecencyFilter string    `json:"search_recency_filter,omitempty"`
}

type response struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Citations     []string       `json:"citations"`
	SearchResults []SearchResult `json:"search_results"`
}

// Ask sends one query and returns the answer text with its citations.
func (c *Client) Ask(ctx context.Context, query string) (*Answer, error) {
	payload, err := json.Marshal(request{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: query},
		},
		SearchRecencyFilter: "day",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("answer api response",
		slog.String("query", query),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("decode response: no choices")
	}

	citations := parsed.Citations
	if len(citations) == 0 {
		for _, r := range parsed.SearchResults {
			citations = append(citations, r.URL)
		}
	}

	return &Answer{
		Query:     query,
		Text:      parsed.Choices[0].Message.Content,
		Citations: citations,
		Results:   parsed.SearchResults,
	}, nil
}
