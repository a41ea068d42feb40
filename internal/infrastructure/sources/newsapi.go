package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"BloomFeed/internal/domain"
	"BloomFeed/internal/source"
)

// NewsAPIAdapter pulls articles from NewsAPI-compatible JSON endpoints.
// Each configured feed URL is a complete query; the API key travels in the
// X-Api-Key header when present in the source options.
type NewsAPIAdapter struct {
	client *http.Client
	clock  func() time.Time
	logger *slog.Logger
}

var _ source.Adapter = (*NewsAPIAdapter)(nil)

func NewNewsAPIAdapter(client *http.Client, logger *slog.Logger) *NewsAPIAdapter {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &NewsAPIAdapter{client: client, clock: time.Now, logger: logger}
}

func (a *NewsAPIAdapter) Name() string {
	return "newsapi"
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// Fetch queries every configured endpoint and normalizes the articles.
func (a *NewsAPIAdapter) Fetch(ctx context.Context, req source.Request) source.Result {
	var res source.Result

	for _, feed := range req.Feeds {
		items, err := a.fetchEndpoint(ctx, req, feed)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("source %s feed %s: %v", req.SourceName, feed.Name, err))
			if a.logger != nil {
				a.logger.Warn("newsapi feed failed", "source", req.SourceName, "feed", feed.Name, "error", err)
			}
			continue
		}
		res.Items = append(res.Items, items...)
	}

	return res
}

func (a *NewsAPIAdapter) fetchEndpoint(ctx context.Context, req source.Request, feed source.Feed) ([]domain.RawItem, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if key := req.Options["api_key"]; key != "" {
		httpReq.Header.Set("X-Api-Key", key)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Status != "" && payload.Status != "ok" {
		return nil, fmt.Errorf("API status %q: %s", payload.Status, payload.Message)
	}

	items := make([]domain.RawItem, 0, len(payload.Articles))
	for _, art := range payload.Articles {
		if art.URL == "" || art.Title == "" {
			continue
		}

		published := a.clock()
		if t, err := time.Parse(time.RFC3339, art.PublishedAt); err == nil {
			published = t
		}

		items = append(items, domain.RawItem{
			Title:       strings.TrimSpace(art.Title),
			Excerpt:     strings.TrimSpace(art.Description),
			URL:         art.URL,
			ImageURL:    art.URLToImage,
			SourceName:  req.SourceName,
			Author:      strings.TrimSpace(art.Author),
			PublishedAt: published,
			Body:        strings.TrimSpace(art.Content),
			Adapter:     a.Name(),
		})
	}

	return items, nil
}
