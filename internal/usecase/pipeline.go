package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"BloomFeed/internal/config"
	"BloomFeed/internal/dedup"
	"BloomFeed/internal/domain"
	"BloomFeed/internal/ports"
)

// ErrNotConfigured is returned when the pipeline is missing a mandatory
// collaborator.
var ErrNotConfigured = errors.New("pipeline is not fully configured")

const (
	wordsPerMinute = 200
	minReadTime    = 2
	maxReadTime    = 15
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ItemSource
	Classifier ports.Classifier
	Repository ports.FeedRepository
	Recorder   ports.RunRecorder
	Logger     *slog.Logger
	Clock      func() time.Time
	Pipeline   config.PipelineConfig
	Dedup      config.DedupConfig
}

// Pipeline implements one ingestion run: fetch, dedup, classify, publish,
// refresh featured, record the audit trail. Individual item failures never
// abort a run; they end up in the run's error list.
type Pipeline struct {
	source     ports.ItemSource
	classifier ports.Classifier
	repository ports.FeedRepository
	recorder   ports.RunRecorder
	logger     *slog.Logger
	clock      func() time.Time
	cfg        config.PipelineConfig
	dedupCfg   config.DedupConfig
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		source:     deps.Source,
		classifier: deps.Classifier,
		repository: deps.Repository,
		recorder:   deps.Recorder,
		logger:     deps.Logger,
		clock:      clock,
		cfg:        deps.Pipeline,
		dedupCfg:   deps.Dedup,
	}
}

// Run executes one full pipeline pass. The audit record is written exactly
// once, whether the run completed or aborted halfway.
func (p *Pipeline) Run(ctx context.Context) (domain.RunStats, error) {
	stats := domain.RunStats{StartedAt: p.clock()}

	if p.source == nil || p.classifier == nil || p.repository == nil {
		return stats, ErrNotConfigured
	}

	// A failure anywhere in the stages must not skip the audit write.
	runErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return p.run(ctx, &stats)
	}()
	if runErr != nil {
		stats.RecordError(fmt.Sprintf("run aborted: %v", runErr))
	}

	stats.FinishedAt = p.clock()

	if p.recorder != nil {
		if err := p.recorder.SaveRun(ctx, stats); err != nil {
			p.warn("failed to save run record", "error", err)
			if runErr == nil {
				runErr = fmt.Errorf("save run record: %w", err)
			}
		}
	}

	p.info("run finished",
		"fetched", stats.Fetched,
		"deduplicated", stats.Deduplicated,
		"classified", stats.Classified,
		"published", stats.Published,
		"rejected", stats.Rejected,
		"errors", len(stats.Errors),
		"duration", stats.Duration().Round(time.Millisecond))

	return stats, runErr
}

func (p *Pipeline) run(ctx context.Context, stats *domain.RunStats) error {
	items, sourceErrs := p.source.FetchAll(ctx)
	stats.Fetched = len(items)
	for _, e := range sourceErrs {
		stats.RecordError(e)
	}
	if len(items) == 0 {
		return nil
	}

	candidates := p.deduplicate(ctx, items, stats)
	if len(candidates) == 0 {
		return nil
	}

	classified, classifyErrs := p.classifier.Classify(ctx, candidates)
	stats.Classified = len(classified)
	for _, e := range classifyErrs {
		stats.RecordError(e)
	}

	p.publish(ctx, classified, stats)

	window := time.Duration(p.cfg.FeaturedWindowHours) * time.Hour
	if err := p.repository.ReplaceFeatured(ctx, window, p.cfg.FeaturedCount); err != nil {
		stats.RecordError(fmt.Sprintf("replace featured: %v", err))
	}

	return nil
}

// deduplicate removes intra-batch URL repeats, truncates to the per-run
// bound and drops everything already known to history, by exact URL or by
// fuzzy title match.
func (p *Pipeline) deduplicate(ctx context.Context, items []domain.RawItem, stats *domain.RunStats) []domain.RawItem {
	unique, dupes := dedup.UniqueByURL(items)
	stats.Deduplicated += dupes

	if p.cfg.MaxItemsPerRun > 0 && len(unique) > p.cfg.MaxItemsPerRun {
		unique = unique[:p.cfg.MaxItemsPerRun]
	}

	since := p.clock().Add(-p.dedupCfg.Window())
	recent, err := p.repository.RecentTitles(ctx, since)
	if err != nil {
		// Without history the fuzzy check is skipped; exact URL dedup
		// still holds via the unique index on insert.
		stats.RecordError(fmt.Sprintf("load recent titles: %v", err))
	}
	matcher := dedup.NewMatcher(p.dedupCfg.SimilarityThreshold, recent)

	fresh := make([]domain.RawItem, 0, len(unique))
	for _, item := range unique {
		exists, err := p.repository.HasURL(ctx, item.URL)
		if err != nil {
			stats.RecordError(fmt.Sprintf("check url %s: %v", item.URL, err))
			continue
		}
		if exists || matcher.IsDuplicate(item.Title) {
			stats.Deduplicated++
			continue
		}
		fresh = append(fresh, item)
	}

	p.info("deduplicated batch", "in", len(items), "out", len(fresh))
	return fresh
}

// publish stores every classified item with its verdict. Items at or above
// the minimum bloom score are published; the rest are kept as rejected for
// audit only.
func (p *Pipeline) publish(ctx context.Context, classified []domain.ClassifiedItem, stats *domain.RunStats) {
	for _, ci := range classified {
		rec := domain.PublishedRecord{
			Item:      ci.Item,
			Result:    ci.Result,
			RawOracle: ci.RawResponse,
			Status:    domain.StatusRejected,
			ReadTime:  estimateReadTime(ci.Item),
		}
		if ci.Result.BloomScore >= p.cfg.MinBloomScore {
			rec.Status = domain.StatusPublished
		}

		if id, err := p.repository.ResolveCategory(ctx, ci.Result.Category); err == nil {
			rec.CategoryID = id
		}
		if id, err := p.repository.ResolveSource(ctx, ci.Item.SourceName); err == nil {
			rec.SourceID = id
		}

		inserted, err := p.repository.Insert(ctx, rec)
		if err != nil {
			stats.RecordError(fmt.Sprintf("insert %s: %v", ci.Item.URL, err))
			continue
		}
		if !inserted {
			// Lost a race with a concurrent run; same outcome as the
			// history check catching it earlier.
			stats.Deduplicated++
			continue
		}

		if rec.Status == domain.StatusPublished {
			stats.Published++
		} else {
			stats.Rejected++
		}
	}
}

// estimateReadTime derives reading minutes from the body length at 200
// words per minute, clamped to a 2..15 minute display range. Items without
// a body get the minimum.
func estimateReadTime(item domain.RawItem) int {
	words := len(strings.Fields(item.Body))
	if words == 0 {
		words = len(strings.Fields(item.Excerpt))
	}

	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < minReadTime {
		minutes = minReadTime
	}
	if minutes > maxReadTime {
		minutes = maxReadTime
	}
	return minutes
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
