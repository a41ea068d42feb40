package source

import (
	"context"
	"fmt"

	"BloomFeed/internal/domain"
)

// Feed describes one concrete sub-source endpoint provided by config
// (a topic query, a site section, an RSS feed).
type Feed struct {
	Name string
	URL  string
}

// Request carries all parameters required to execute one adapter fetch.
type Request struct {
	SourceName string
	Feeds      []Feed
	Options    map[string]string
}

// Result aggregates one adapter run: normalized items plus non-fatal
// failure notes. A failed sub-source contributes zero items, never an abort.
type Result struct {
	Items  []domain.RawItem
	Errors []string
}

// Adapter captures a single provider strategy (RSS, JSON API, HTML scan).
// Fetch must tolerate partial failure: sub-source errors become empty
// results recorded in Result.Errors.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, req Request) Result
}

// Registry keeps a mapping from adapter names to their implementations.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

// Register adds or replaces an adapter implementation.
func (r *Registry) Register(adapter Adapter) {
	if r.adapters == nil {
		r.adapters = map[string]Adapter{}
	}
	r.adapters[adapter.Name()] = adapter
}

// Resolve returns an adapter by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Adapter, error) {
	if adapter, ok := r.adapters[name]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("adapter %s is not registered", name)
}
