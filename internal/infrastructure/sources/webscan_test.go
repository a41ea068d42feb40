package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"BloomFeed/internal/source"
)

const sampleListing = `<!DOCTYPE html>
<html><body>
  <div class="card">
    <h2 class="card-title"><a href="/stories/beehives">Urban beehives triple honey yield</a></h2>
    <p class="teaser">Rooftop colonies thrive downtown</p>
    <img class="thumb" src="/img/bees.jpg"/>
  </div>
  <div class="card">
    <h2 class="card-title"><a href="https://other.example.org/river">River otters return after fifty years</a></h2>
  </div>
  <div class="card">
    <h2 class="card-title">No link here</h2>
  </div>
</body></html>`

func TestWebScanAdapter_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleListing))
	}))
	defer srv.Close()

	adapter := NewWebScanAdapter(srv.Client(), nil)
	res := adapter.Fetch(context.Background(), source.Request{
		SourceName: "citypaper",
		Feeds:      []source.Feed{{Name: "front", URL: srv.URL + "/news"}},
		Options: map[string]string{
			"item_selector":    "div.card",
			"title_selector":   "h2.card-title a",
			"excerpt_selector": "p.teaser",
			"image_selector":   "img.thumb",
		},
	})

	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items (linkless card dropped), got %d", len(res.Items))
	}

	first := res.Items[0]
	if first.Title != "Urban beehives triple honey yield" {
		t.Fatalf("title = %q", first.Title)
	}
	if first.URL != srv.URL+"/stories/beehives" {
		t.Fatalf("relative link not resolved: %q", first.URL)
	}
	if first.Excerpt != "Rooftop colonies thrive downtown" {
		t.Fatalf("excerpt = %q", first.Excerpt)
	}
	if first.ImageURL != srv.URL+"/img/bees.jpg" {
		t.Fatalf("relative image not resolved: %q", first.ImageURL)
	}

	if res.Items[1].URL != "https://other.example.org/river" {
		t.Fatalf("absolute link must pass through: %q", res.Items[1].URL)
	}
}

func TestWebScanAdapter_MissingSelectors(t *testing.T) {
	t.Parallel()

	adapter := NewWebScanAdapter(nil, nil)
	res := adapter.Fetch(context.Background(), source.Request{
		SourceName: "citypaper",
		Feeds:      []source.Feed{{Name: "front", URL: "https://example.com"}},
	})

	if len(res.Items) != 0 || len(res.Errors) != 1 {
		t.Fatalf("expected config error, got items=%d errors=%v", len(res.Items), res.Errors)
	}
}
