package dedup

import (
	"strings"

	"BloomFeed/internal/domain"
)

// Tokens shorter than this are discarded before comparison; a crude
// stop-word filter that removes articles, prepositions and similar glue.
const minTokenLen = 4

// UniqueByURL drops items missing a title or source URL (both mandatory for
// identity and display) and removes exact-URL repeats, first seen wins.
// Emission order is preserved. The second return value counts dropped
// duplicates only; invalid items are not duplicates and are not counted.
func UniqueByURL(items []domain.RawItem) ([]domain.RawItem, int) {
	seen := make(map[string]struct{}, len(items))
	kept := make([]domain.RawItem, 0, len(items))
	dupes := 0

	for _, item := range items {
		url := strings.TrimSpace(item.URL)
		if url == "" || strings.TrimSpace(item.Title) == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			dupes++
			continue
		}
		seen[url] = struct{}{}
		kept = append(kept, item)
	}

	return kept, dupes
}

// Tokenize lower-cases the title, splits on whitespace and discards short
// tokens. The result is a set: word order and repetition are ignored.
func Tokenize(title string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, field := range strings.Fields(strings.ToLower(title)) {
		if len(field) < minTokenLen {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}

// Similarity computes |intersection| / max(|a|, |b|). Empty sets never
// match: two titles made entirely of short words are not comparable.
func Similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	shared := 0
	for token := range a {
		if _, ok := b[token]; ok {
			shared++
		}
	}

	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	return float64(shared) / float64(max)
}

// Matcher checks candidate titles against recently published history. This
// is a heuristic, not entity resolution: short generic titles can collide
// and differently-worded retellings can slip through.
type Matcher struct {
	threshold float64
	history   []map[string]struct{}
}

// NewMatcher pre-tokenizes the recent titles once for the whole run.
func NewMatcher(threshold float64, recentTitles []string) *Matcher {
	history := make([]map[string]struct{}, 0, len(recentTitles))
	for _, title := range recentTitles {
		history = append(history, Tokenize(title))
	}
	return &Matcher{threshold: threshold, history: history}
}

// IsDuplicate reports whether title matches any recent record at or above
// the threshold. First match wins; scan order follows the history slice.
func (m *Matcher) IsDuplicate(title string) bool {
	candidate := Tokenize(title)
	for _, existing := range m.history {
		if Similarity(candidate, existing) >= m.threshold {
			return true
		}
	}
	return false
}
