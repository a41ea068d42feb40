package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"BloomFeed/internal/config"
	"BloomFeed/internal/domain"
	"BloomFeed/internal/ports"
)

// Classifier splits candidates into fixed-size chunks, invokes the oracle
// per chunk and validates the positional response contract. A chunk whose
// response is unusable falls back to defaults as a whole; items are never
// dropped here.
type Classifier struct {
	client    TextClient
	chunkSize int
	delay     time.Duration
	clock     func() time.Time
	logger    *slog.Logger
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier wires the oracle transport with chunking parameters.
func NewClassifier(client TextClient, cfg config.OracleConfig, logger *slog.Logger) *Classifier {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 10
	}
	return &Classifier{
		client:    client,
		chunkSize: chunkSize,
		delay:     cfg.ChunkDelay(),
		clock:     time.Now,
		logger:    logger,
	}
}

// verdict mirrors one element of the oracle's response array.
type verdict struct {
	BloomScore int      `json:"bloom_score"`
	Category   string   `json:"category"`
	IsWeird    bool     `json:"is_weird"`
	Summary    string   `json:"summary"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
}

// Classify implements ports.Classifier. Output length always equals input
// length; each failed chunk contributes one error string.
func (c *Classifier) Classify(ctx context.Context, items []domain.RawItem) ([]domain.ClassifiedItem, []string) {
	if len(items) == 0 {
		return nil, nil
	}

	results := make([]domain.ClassifiedItem, 0, len(items))
	var errs []string

	totalChunks := (len(items) + c.chunkSize - 1) / c.chunkSize
	for i := 0; i < len(items); i += c.chunkSize {
		end := i + c.chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[i:end]
		chunkNum := i/c.chunkSize + 1

		if chunkNum > 1 && c.delay > 0 {
			select {
			case <-ctx.Done():
				// Remaining chunks fall back; the run still finishes.
				for _, item := range items[i:] {
					results = append(results, c.fallback(item))
				}
				errs = append(errs, fmt.Sprintf("classification interrupted: %v", ctx.Err()))
				return results, errs
			case <-time.After(c.delay):
			}
		}

		c.debug("classifying chunk", "chunk", chunkNum, "of", totalChunks, "items", len(chunk))

		classified, err := c.classifyChunk(ctx, chunk)
		if err != nil {
			errs = append(errs, fmt.Sprintf("classify chunk %d/%d: %v", chunkNum, totalChunks, err))
			c.warn("chunk fell back to defaults", "chunk", chunkNum, "error", err)
			for _, item := range chunk {
				results = append(results, c.fallback(item))
			}
			continue
		}

		results = append(results, classified...)
	}

	return results, errs
}

func (c *Classifier) classifyChunk(ctx context.Context, chunk []domain.RawItem) ([]domain.ClassifiedItem, error) {
	response, err := c.client.GenerateJSON(ctx, buildChunkPrompt(chunk))
	if err != nil {
		return nil, fmt.Errorf("oracle call: %w", err)
	}

	// Two-phase parse keeps each item's original oracle JSON for audit.
	raw, err := parseArray(response)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(chunk) {
		return nil, fmt.Errorf("oracle returned %d objects for %d items", len(raw), len(chunk))
	}

	now := c.clock()
	results := make([]domain.ClassifiedItem, 0, len(chunk))
	for idx, item := range chunk {
		var v verdict
		if err := json.Unmarshal(raw[idx], &v); err != nil {
			return nil, fmt.Errorf("object %d: %w", idx, err)
		}
		results = append(results, domain.ClassifiedItem{
			Item:         item,
			Result:       sanitize(v, item),
			RawResponse:  raw[idx],
			ClassifiedAt: now,
		})
	}

	return results, nil
}

// parseArray decodes the response as a JSON array, tolerating prose or
// code fences wrapped around it.
func parseArray(response string) ([]json.RawMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(response), &raw); err == nil {
		return raw, nil
	}

	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in oracle response")
	}
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal oracle response: %w", err)
	}
	return raw, nil
}

// sanitize clamps out-of-range oracle values instead of failing the chunk.
func sanitize(v verdict, item domain.RawItem) domain.Classification {
	score := v.BloomScore
	if score < 1 {
		score = 1
	}
	if score > 5 {
		score = 5
	}

	category := strings.TrimSpace(strings.ToLower(v.Category))
	if !domain.ValidCategory(category) {
		category = domain.DefaultCategory
	}

	confidence := v.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	summary := strings.TrimSpace(v.Summary)
	if summary == "" {
		summary = item.Excerpt
	}

	return domain.Classification{
		BloomScore: score,
		Category:   category,
		IsWeird:    v.IsWeird,
		Summary:    summary,
		Tags:       v.Tags,
		Confidence: confidence,
	}
}

func (c *Classifier) fallback(item domain.RawItem) domain.ClassifiedItem {
	return domain.ClassifiedItem{
		Item:         item,
		Result:       domain.FallbackClassification(item),
		ClassifiedAt: c.clock(),
	}
}

func buildChunkPrompt(chunk []domain.RawItem) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Rate the following %d news items:\n", len(chunk)))
	for i, item := range chunk {
		sb.WriteString(fmt.Sprintf("\n%d. Title: %s\n   Excerpt: %s\n   Source: %s\n",
			i+1, item.Title, item.Excerpt, item.SourceName))
	}
	return sb.String()
}

func (c *Classifier) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Classifier) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
