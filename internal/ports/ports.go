package ports

import (
	"context"
	"time"

	"BloomFeed/internal/domain"
)

// ItemSource pulls fresh items from all configured providers. Returned
// error strings describe sources that failed; partial results are normal.
type ItemSource interface {
	FetchAll(ctx context.Context) ([]domain.RawItem, []string)
}

// Classifier rates items via the classification oracle. It never drops
// items: chunks whose oracle response is unusable fall back to defaults,
// with one error string per failed chunk.
type Classifier interface {
	Classify(ctx context.Context, items []domain.RawItem) ([]domain.ClassifiedItem, []string)
}

// FeedRepository persists published/rejected records and answers the
// history questions the deduplicator asks.
type FeedRepository interface {
	HasURL(ctx context.Context, url string) (bool, error)
	RecentTitles(ctx context.Context, since time.Time) ([]string, error)
	// Insert stores the record keyed by source URL. A uniqueness conflict
	// returns (false, nil): already exists, not an error.
	Insert(ctx context.Context, rec domain.PublishedRecord) (bool, error)
	// ReplaceFeatured clears all featured flags and marks the top records
	// of the window, ordered by (bloom score, publication time) descending.
	ReplaceFeatured(ctx context.Context, window time.Duration, limit int) error
	ResolveCategory(ctx context.Context, name string) (*int64, error)
	ResolveSource(ctx context.Context, name string) (*int64, error)
}

// RunRecorder writes the once-per-run audit record.
type RunRecorder interface {
	SaveRun(ctx context.Context, stats domain.RunStats) error
}

// FeedReader is the read-only query contract consumed by the presentation
// collaborator. Rejected records never appear in any of these.
type FeedReader interface {
	ListPublished(ctx context.Context, limit int, category string) ([]domain.PublishedRecord, error)
	ListOddities(ctx context.Context, limit int) ([]domain.PublishedRecord, error)
	ListFeatured(ctx context.Context) ([]domain.PublishedRecord, error)
	ListTrending(ctx context.Context, limit int) ([]domain.PublishedRecord, error)
}

// SubscriberIntake accepts newsletter signups; write-only by contract.
type SubscriberIntake interface {
	AddSubscriber(ctx context.Context, email string) error
}

// Scheduler controls when the pipeline executes in daemon mode.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
