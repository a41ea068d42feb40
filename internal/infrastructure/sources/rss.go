package sources

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"BloomFeed/internal/domain"
	"BloomFeed/internal/source"
)

const maxItemsPerFeed = 100

// RSSAdapter ingests RSS 2.0 feeds. Each configured feed is fetched
// independently; a broken feed is logged and contributes nothing.
type RSSAdapter struct {
	client *http.Client
	clock  func() time.Time
	logger *slog.Logger
}

var _ source.Adapter = (*RSSAdapter)(nil)

// NewRSSAdapter wires an HTTP client; a nil client gets a 15s-timeout default.
func NewRSSAdapter(client *http.Client, logger *slog.Logger) *RSSAdapter {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RSSAdapter{client: client, clock: time.Now, logger: logger}
}

// Name identifies the strategy inside the registry.
func (a *RSSAdapter) Name() string {
	return "rss"
}

// Fetch walks every configured feed and normalizes its entries.
func (a *RSSAdapter) Fetch(ctx context.Context, req source.Request) source.Result {
	var res source.Result

	for _, feed := range req.Feeds {
		items, err := a.fetchFeed(ctx, req.SourceName, feed)
		if err != nil {
			msg := fmt.Sprintf("source %s feed %s: %v", req.SourceName, feed.Name, err)
			res.Errors = append(res.Errors, msg)
			if a.logger != nil {
				a.logger.Warn("rss feed failed", "source", req.SourceName, "feed", feed.Name, "error", err)
			}
			continue
		}
		res.Items = append(res.Items, items...)
	}

	return res
}

func (a *RSSAdapter) fetchFeed(ctx context.Context, sourceName string, feed source.Feed) ([]domain.RawItem, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "BloomFeed/1.0")
	httpReq.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	entries, err := parseRSSFeed(body)
	if err != nil {
		return nil, fmt.Errorf("parse RSS: %w", err)
	}

	if len(entries) > maxItemsPerFeed {
		entries = entries[:maxItemsPerFeed]
	}

	items := make([]domain.RawItem, 0, len(entries))
	for _, entry := range entries {
		if entry.Link == "" || entry.Title == "" {
			continue
		}

		items = append(items, domain.RawItem{
			Title:       strings.TrimSpace(entry.Title),
			Excerpt:     strings.TrimSpace(stripTags(entry.Description)),
			URL:         strings.TrimSpace(entry.Link),
			ImageURL:    entry.Enclosure.URL,
			SourceName:  sourceName,
			Author:      strings.TrimSpace(entry.Creator),
			PublishedAt: parsePubDate(entry.PubDate, a.clock()),
			Body:        strings.TrimSpace(entry.ContentEncoded),
			Adapter:     a.Name(),
		})
	}

	return items, nil
}

// --- RSS parsing ---

type rssFeed struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssEntry `xml:"item"`
}

type rssEntry struct {
	Title          string       `xml:"title"`
	Link           string       `xml:"link"`
	Description    string       `xml:"description"`
	ContentEncoded string       `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	Creator        string       `xml:"http://purl.org/dc/elements/1.1/ creator"`
	PubDate        string       `xml:"pubDate"`
	Enclosure      rssEnclosure `xml:"enclosure"`
}

type rssEnclosure struct {
	URL string `xml:"url,attr"`
}

func parseRSSFeed(data []byte) ([]rssEntry, error) {
	var feed rssFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		// Retry with a tolerant decoder; feeds in the wild ship broken
		// entities and undeclared namespaces.
		decoder := xml.NewDecoder(bytes.NewReader(data))
		decoder.Strict = false
		if err := decoder.Decode(&feed); err != nil {
			return nil, fmt.Errorf("decode RSS XML: %w", err)
		}
	}
	return feed.Channel.Items, nil
}

func parsePubDate(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}

	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		time.RFC3339,
		"Mon, 02 Jan 2006 15:04:05 MST",
		"02 Jan 2006 15:04:05 MST",
	}

	for _, f := range formats {
		if t, err := time.Parse(f, value); err == nil {
			return t
		}
	}

	return fallback
}

// stripTags removes angle-bracket markup from feed descriptions that embed
// HTML. Good enough for excerpt display; not a sanitizer.
func stripTags(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
