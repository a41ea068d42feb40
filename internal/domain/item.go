package domain

import (
	"encoding/json"
	"time"
)

// RawItem is the normalized shape every source adapter emits. The source URL
// acts as the global identity key: one RawItem per URL per run, one stored
// record per URL ever.
type RawItem struct {
	Title       string
	Excerpt     string
	URL         string
	ImageURL    string
	SourceName  string
	Author      string
	PublishedAt time.Time
	Body        string
	Adapter     string
}

// Categories is the closed set of topic labels the oracle may assign.
var Categories = []string{
	"science",
	"technology",
	"health",
	"environment",
	"community",
	"culture",
	"general",
}

// DefaultCategory absorbs unclassifiable items and invalid oracle labels.
const DefaultCategory = "general"

// ValidCategory reports whether label belongs to the closed category set.
func ValidCategory(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}

// Classification carries the oracle verdict for a single item.
type Classification struct {
	BloomScore int
	Category   string
	IsWeird    bool
	Summary    string
	Tags       []string
	Confidence float64
}

// FallbackClassification is applied to every item of a chunk whose oracle
// response could not be used.
func FallbackClassification(item RawItem) Classification {
	return Classification{
		BloomScore: 3,
		Category:   DefaultCategory,
		IsWeird:    false,
		Summary:    item.Excerpt,
		Tags:       nil,
		Confidence: 0,
	}
}

// ClassifiedItem pairs a RawItem with its verdict; never mutated after
// creation. RawResponse keeps the oracle's original JSON for audit.
type ClassifiedItem struct {
	Item         RawItem
	Result       Classification
	RawResponse  json.RawMessage
	ClassifiedAt time.Time
}

// PublishStatus gates feed visibility. Rejected records are stored for audit
// but excluded from all read queries.
type PublishStatus string

const (
	StatusPublished PublishStatus = "published"
	StatusRejected  PublishStatus = "rejected"
)

// PublishedRecord is the persisted form of a classified item. CategoryID and
// SourceID are best-effort references; nil when no matching entity exists.
type PublishedRecord struct {
	ID         int64
	Item       RawItem
	Result     Classification
	RawOracle  json.RawMessage
	Status     PublishStatus
	CategoryID *int64
	SourceID   *int64
	Featured   bool
	ReadTime   int
	Views      int64
	CreatedAt  time.Time
}

// RunStats accumulates counters for one pipeline execution. Created at run
// start, finalized and persisted exactly once at run end.
type RunStats struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	Fetched      int
	Deduplicated int
	Classified   int
	Published    int
	Rejected     int
	Errors       []string
}

// RecordError appends a non-fatal failure message to the run's error list.
func (s *RunStats) RecordError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// Duration returns the wall-clock time the run took.
func (s *RunStats) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
