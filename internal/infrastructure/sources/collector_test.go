package sources

import (
	"context"
	"testing"
	"time"

	"BloomFeed/internal/config"
	"BloomFeed/internal/domain"
	"BloomFeed/internal/source"
)

// stubAdapter returns a scripted result after an optional delay, so tests
// can make the slow source finish last and still expect config order.
type stubAdapter struct {
	name  string
	res   source.Result
	delay time.Duration
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(ctx context.Context, req source.Request) source.Result {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.res
}

func TestCollector_OrderIndependentOfTiming(t *testing.T) {
	t.Parallel()

	registry := source.NewRegistry()
	registry.Register(&stubAdapter{
		name:  "slow",
		delay: 30 * time.Millisecond,
		res:   source.Result{Items: []domain.RawItem{{Title: "A", URL: "https://a"}}},
	})
	registry.Register(&stubAdapter{
		name: "fast",
		res:  source.Result{Items: []domain.RawItem{{Title: "B", URL: "https://b"}}},
	})

	c := NewCollector(registry, []config.SourceConfig{
		{Name: "first", Adapter: "slow"},
		{Name: "second", Adapter: "fast"},
	}, nil)

	items, errs := c.FetchAll(context.Background())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Title != "A" || items[1].Title != "B" {
		t.Fatalf("result order must follow configuration, got %q then %q", items[0].Title, items[1].Title)
	}
}

func TestCollector_UnknownAdapterIsIsolated(t *testing.T) {
	t.Parallel()

	registry := source.NewRegistry()
	registry.Register(&stubAdapter{
		name: "rss",
		res:  source.Result{Items: []domain.RawItem{{Title: "A", URL: "https://a"}}},
	})

	c := NewCollector(registry, []config.SourceConfig{
		{Name: "bad", Adapter: "telepathy"},
		{Name: "good", Adapter: "rss"},
	}, nil)

	items, errs := c.FetchAll(context.Background())
	if len(items) != 1 {
		t.Fatalf("healthy source must still contribute, got %d items", len(items))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for unknown adapter, got %v", errs)
	}
}
