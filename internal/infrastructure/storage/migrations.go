package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS categories (
    id   BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS news_sources (
    id   BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS news_items (
    id           BIGSERIAL PRIMARY KEY,
    url          TEXT NOT NULL UNIQUE,
    title        TEXT NOT NULL,
    excerpt      TEXT NOT NULL DEFAULT '',
    body         TEXT NOT NULL DEFAULT '',
    image_url    TEXT NOT NULL DEFAULT '',
    author       TEXT NOT NULL DEFAULT '',
    source_name  TEXT NOT NULL DEFAULT '',
    adapter      TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ NOT NULL,
    bloom_score  INTEGER NOT NULL,
    category     TEXT NOT NULL,
    category_id  BIGINT REFERENCES categories(id),
    source_id    BIGINT REFERENCES news_sources(id),
    is_weird     BOOLEAN NOT NULL DEFAULT FALSE,
    summary      TEXT NOT NULL DEFAULT '',
    tags         TEXT[] NOT NULL DEFAULT '{}',
    confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
    raw_oracle   JSONB,
    status       TEXT NOT NULL,
    featured     BOOLEAN NOT NULL DEFAULT FALSE,
    read_time    INTEGER NOT NULL DEFAULT 2,
    views        BIGINT NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_news_items_status_created ON news_items(status, created_at);
CREATE INDEX IF NOT EXISTS idx_news_items_bloom ON news_items(bloom_score);
CREATE INDEX IF NOT EXISTS idx_news_items_featured ON news_items(featured) WHERE featured;
CREATE INDEX IF NOT EXISTS idx_news_items_category ON news_items(category);

CREATE TABLE IF NOT EXISTS pipeline_runs (
    id           BIGSERIAL PRIMARY KEY,
    started_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ NOT NULL,
    fetched      INTEGER NOT NULL,
    deduplicated INTEGER NOT NULL,
    classified   INTEGER NOT NULL,
    published    INTEGER NOT NULL,
    rejected     INTEGER NOT NULL,
    errors       TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS subscribers (
    id         BIGSERIAL PRIMARY KEY,
    email      TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates all tables and indexes if they do not exist yet.
// Safe to run on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
