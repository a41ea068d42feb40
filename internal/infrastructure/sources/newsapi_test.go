package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BloomFeed/internal/source"
)

const sampleNewsAPI = `{
  "status": "ok",
  "articles": [
    {
      "source": {"name": "Example Wire"},
      "author": "Sam Writer",
      "title": "Reforestation project hits million-tree milestone",
      "description": "A decade-long effort pays off",
      "url": "https://example.com/trees",
      "urlToImage": "https://example.com/trees.jpg",
      "publishedAt": "2025-06-02T08:00:00Z",
      "content": "Full article text"
    },
    {
      "title": "Missing URL gets dropped",
      "description": "no link"
    }
  ]
}`

func TestNewsAPIAdapter_Fetch(t *testing.T) {
	t.Parallel()

	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		w.Write([]byte(sampleNewsAPI))
	}))
	defer srv.Close()

	adapter := NewNewsAPIAdapter(srv.Client(), nil)
	res := adapter.Fetch(context.Background(), source.Request{
		SourceName: "wire",
		Feeds:      []source.Feed{{Name: "top", URL: srv.URL}},
		Options:    map[string]string{"api_key": "secret-key"},
	})

	if gotKey != "secret-key" {
		t.Fatalf("API key header = %q", gotKey)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Items) != 1 {
		t.Fatalf("expected 1 item (URL-less dropped), got %d", len(res.Items))
	}

	item := res.Items[0]
	if item.Title != "Reforestation project hits million-tree milestone" {
		t.Fatalf("title = %q", item.Title)
	}
	if item.SourceName != "wire" || item.Adapter != "newsapi" {
		t.Fatalf("provenance not set: %q %q", item.SourceName, item.Adapter)
	}
	want := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	if !item.PublishedAt.Equal(want) {
		t.Fatalf("published = %v, want %v", item.PublishedAt, want)
	}
}

func TestNewsAPIAdapter_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"apiKeyInvalid"}`))
	}))
	defer srv.Close()

	adapter := NewNewsAPIAdapter(srv.Client(), nil)
	res := adapter.Fetch(context.Background(), source.Request{
		SourceName: "wire",
		Feeds:      []source.Feed{{Name: "top", URL: srv.URL}},
	})

	if len(res.Items) != 0 {
		t.Fatalf("error status must yield no items, got %d", len(res.Items))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", res.Errors)
	}
}
