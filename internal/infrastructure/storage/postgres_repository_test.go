package storage

import (
	"strings"
	"testing"

	sq "github.com/Masterminds/squirrel"
)

func TestPublishedQuery_BaseFilter(t *testing.T) {
	t.Parallel()

	r := NewPostgresRepository(nil)
	query, args, err := r.publishedQuery().ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}

	if !strings.Contains(query, "FROM news_items") {
		t.Fatalf("unexpected query: %s", query)
	}
	if !strings.Contains(query, "status = $1") {
		t.Fatalf("dollar placeholders expected: %s", query)
	}
	if len(args) != 1 || args[0] != "published" {
		t.Fatalf("rejected records must be excluded, args = %v", args)
	}
}

func TestListPublished_CategoryFilterIsOptional(t *testing.T) {
	t.Parallel()

	r := NewPostgresRepository(nil)

	plain, _, err := r.publishedQuery().
		OrderBy("created_at DESC").
		Limit(20).
		ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if strings.Contains(plain, "category =") {
		t.Fatalf("no category filter expected: %s", plain)
	}

	filtered, args, err := r.publishedQuery().
		OrderBy("created_at DESC").
		Limit(20).
		Where(sq.Eq{"category": "science"}).
		ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if !strings.Contains(filtered, "category = $2") {
		t.Fatalf("category filter expected: %s", filtered)
	}
	if len(args) != 2 || args[1] != "science" {
		t.Fatalf("args = %v", args)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	if isUniqueViolation(nil) {
		t.Fatal("nil error is not a unique violation")
	}
	if isUniqueViolation(sq.RunnerNotSet) {
		t.Fatal("unrelated error is not a unique violation")
	}
}
