package sources

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"BloomFeed/internal/config"
	"BloomFeed/internal/domain"
	"BloomFeed/internal/ports"
	"BloomFeed/internal/source"
)

// Collector fans out over all configured sources concurrently and merges
// their results in configuration order, so a run's input sequence does not
// depend on network timing.
type Collector struct {
	registry *source.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.ItemSource = (*Collector)(nil)

func NewCollector(registry *source.Registry, sources []config.SourceConfig, logger *slog.Logger) *Collector {
	return &Collector{registry: registry, sources: sources, logger: logger}
}

// FetchAll implements ports.ItemSource. Every source failure is isolated:
// an unknown adapter or a failed fetch contributes error strings, never an
// abort of the whole collection.
func (c *Collector) FetchAll(ctx context.Context) ([]domain.RawItem, []string) {
	results := make([]source.Result, len(c.sources))

	var wg sync.WaitGroup
	for i, src := range c.sources {
		adapter, err := c.registry.Resolve(src.Adapter)
		if err != nil {
			results[i].Errors = []string{fmt.Sprintf("source %s: %v", src.Name, err)}
			continue
		}

		wg.Add(1)
		go func(i int, src config.SourceConfig, adapter source.Adapter) {
			defer wg.Done()
			results[i] = adapter.Fetch(ctx, buildRequest(src))
		}(i, src, adapter)
	}
	wg.Wait()

	var items []domain.RawItem
	var errs []string
	for i, res := range results {
		items = append(items, res.Items...)
		errs = append(errs, res.Errors...)
		if c.logger != nil {
			c.logger.Info("source fetched",
				"source", c.sources[i].Name,
				"items", len(res.Items),
				"errors", len(res.Errors))
		}
	}

	return items, errs
}

func buildRequest(src config.SourceConfig) source.Request {
	feeds := make([]source.Feed, 0, len(src.Feeds))
	for _, f := range src.Feeds {
		feeds = append(feeds, source.Feed{Name: f.Name, URL: f.URL})
	}
	return source.Request{
		SourceName: src.Name,
		Feeds:      feeds,
		Options:    src.Options,
	}
}
