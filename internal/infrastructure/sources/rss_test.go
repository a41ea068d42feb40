package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BloomFeed/internal/source"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Good News Daily</title>
  <item>
    <title>Volunteers restore wetland habitat</title>
    <link>https://example.com/wetland</link>
    <description>&lt;p&gt;Over 200 volunteers spent the weekend&lt;/p&gt;</description>
    <dc:creator>Jane Reporter</dc:creator>
    <pubDate>Mon, 02 Jun 2025 10:30:00 +0000</pubDate>
    <enclosure url="https://example.com/wetland.jpg" type="image/jpeg"/>
  </item>
  <item>
    <title>City library waives all late fees</title>
    <link>https://example.com/library</link>
    <description>Thousands of books returned</description>
    <pubDate>not a date</pubDate>
  </item>
  <item>
    <title></title>
    <link>https://example.com/untitled</link>
  </item>
</channel>
</rss>`

func TestRSSAdapter_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	now := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	adapter := NewRSSAdapter(srv.Client(), nil)
	adapter.clock = func() time.Time { return now }

	res := adapter.Fetch(context.Background(), source.Request{
		SourceName: "goodnews",
		Feeds:      []source.Feed{{Name: "main", URL: srv.URL}},
	})

	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items (untitled dropped), got %d", len(res.Items))
	}

	first := res.Items[0]
	if first.Title != "Volunteers restore wetland habitat" {
		t.Fatalf("title = %q", first.Title)
	}
	if first.Excerpt != "Over 200 volunteers spent the weekend" {
		t.Fatalf("HTML not stripped from excerpt: %q", first.Excerpt)
	}
	if first.Author != "Jane Reporter" {
		t.Fatalf("author = %q", first.Author)
	}
	if first.ImageURL != "https://example.com/wetland.jpg" {
		t.Fatalf("image = %q", first.ImageURL)
	}
	if first.SourceName != "goodnews" || first.Adapter != "rss" {
		t.Fatalf("provenance not set: %q %q", first.SourceName, first.Adapter)
	}
	want := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Fatalf("published = %v, want %v", first.PublishedAt, want)
	}

	// Unparseable pubDate falls back to the current time.
	if !res.Items[1].PublishedAt.Equal(now) {
		t.Fatalf("fallback published = %v, want %v", res.Items[1].PublishedAt, now)
	}
}

func TestRSSAdapter_FeedFailureIsIsolated(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	adapter := NewRSSAdapter(srv.Client(), nil)
	res := adapter.Fetch(context.Background(), source.Request{
		SourceName: "goodnews",
		Feeds: []source.Feed{
			{Name: "broken", URL: srv.URL + "/broken"},
			{Name: "main", URL: srv.URL + "/ok"},
		},
	})

	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error for the broken feed, got %v", res.Errors)
	}
	if len(res.Items) != 2 {
		t.Fatalf("healthy feed must still contribute, got %d items", len(res.Items))
	}
}

func TestParsePubDate(t *testing.T) {
	t.Parallel()

	fallback := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"Mon, 02 Jun 2025 10:30:00 +0000", time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)},
		{"2025-06-02T10:30:00Z", time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)},
		{"", fallback},
		{"garbage", fallback},
	}

	for _, tt := range tests {
		got := parsePubDate(tt.in, fallback)
		if !got.Equal(tt.want) {
			t.Fatalf("parsePubDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
