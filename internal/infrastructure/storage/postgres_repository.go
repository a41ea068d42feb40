package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"BloomFeed/internal/domain"
	"BloomFeed/internal/ports"
)

const uniqueViolation = "23505"

// PostgresRepository persists classified items and run audit records into
// Postgres and serves the feed read queries.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var (
	_ ports.FeedRepository   = (*PostgresRepository)(nil)
	_ ports.RunRecorder      = (*PostgresRepository)(nil)
	_ ports.FeedReader       = (*PostgresRepository)(nil)
	_ ports.SubscriberIntake = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// HasURL reports whether a record with this source URL already exists.
func (r *PostgresRepository) HasURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM news_items WHERE url = $1)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check url: %w", err)
	}
	return exists, nil
}

// RecentTitles returns the titles of all records stored since the cutoff,
// published and rejected alike.
func (r *PostgresRepository) RecentTitles(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT title FROM news_items WHERE created_at >= $1 ORDER BY created_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("query recent titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return titles, nil
}

// Insert stores the record keyed by source URL. Returns (false, nil) when a
// record with the same URL already exists; concurrent writers racing on the
// same URL resolve the same way.
func (r *PostgresRepository) Insert(ctx context.Context, rec domain.PublishedRecord) (bool, error) {
	query := `INSERT INTO news_items
	          (url, title, excerpt, body, image_url, author, source_name, adapter,
	           published_at, bloom_score, category, category_id, source_id,
	           is_weird, summary, tags, confidence, raw_oracle, status, read_time)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
	                  $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	          ON CONFLICT (url) DO NOTHING`

	var rawOracle any
	if len(rec.RawOracle) > 0 {
		rawOracle = []byte(rec.RawOracle)
	}

	// A nil slice would serialize as SQL NULL and trip the NOT NULL
	// constraint; fallback verdicts carry no tags.
	tags := rec.Result.Tags
	if tags == nil {
		tags = []string{}
	}

	res, err := r.db.ExecContext(ctx, query,
		rec.Item.URL,
		rec.Item.Title,
		rec.Item.Excerpt,
		rec.Item.Body,
		rec.Item.ImageURL,
		rec.Item.Author,
		rec.Item.SourceName,
		rec.Item.Adapter,
		rec.Item.PublishedAt,
		rec.Result.BloomScore,
		rec.Result.Category,
		nullableID(rec.CategoryID),
		nullableID(rec.SourceID),
		rec.Result.IsWeird,
		rec.Result.Summary,
		pq.Array(tags),
		rec.Result.Confidence,
		rawOracle,
		string(rec.Status),
		rec.ReadTime,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ReplaceFeatured rebuilds the featured selection in one transaction: clear
// every flag, then mark the top published records of the window ordered by
// bloom score and recency.
func (r *PostgresRepository) ReplaceFeatured(ctx context.Context, window time.Duration, limit int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE news_items SET featured = FALSE WHERE featured`); err != nil {
		return fmt.Errorf("clear featured: %w", err)
	}

	query := `UPDATE news_items SET featured = TRUE
	          WHERE id IN (
	              SELECT id FROM news_items
	              WHERE status = $1 AND created_at >= $2
	              ORDER BY bloom_score DESC, created_at DESC
	              LIMIT $3
	          )`

	cutoff := time.Now().Add(-window)
	if _, err := tx.ExecContext(ctx, query, string(domain.StatusPublished), cutoff, limit); err != nil {
		return fmt.Errorf("mark featured: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ResolveCategory looks up a category reference by name. A missing category
// is (nil, nil): the record is stored with the label only.
func (r *PostgresRepository) ResolveCategory(ctx context.Context, name string) (*int64, error) {
	return r.resolveRef(ctx, `SELECT id FROM categories WHERE name = $1`, name)
}

// ResolveSource looks up a source reference by name; missing is (nil, nil).
func (r *PostgresRepository) ResolveSource(ctx context.Context, name string) (*int64, error) {
	return r.resolveRef(ctx, `SELECT id FROM news_sources WHERE name = $1`, name)
}

func (r *PostgresRepository) resolveRef(ctx context.Context, query, name string) (*int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, query, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", name, err)
	}
	return &id, nil
}

// SaveRun appends the audit record for one pipeline execution.
func (r *PostgresRepository) SaveRun(ctx context.Context, stats domain.RunStats) error {
	query := `INSERT INTO pipeline_runs
	          (started_at, finished_at, fetched, deduplicated, classified, published, rejected, errors)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	errs := stats.Errors
	if errs == nil {
		errs = []string{}
	}

	_, err := r.db.ExecContext(ctx, query,
		stats.StartedAt,
		stats.FinishedAt,
		stats.Fetched,
		stats.Deduplicated,
		stats.Classified,
		stats.Published,
		stats.Rejected,
		pq.Array(errs),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// AddSubscriber records a newsletter signup; repeat signups are silently
// accepted.
func (r *PostgresRepository) AddSubscriber(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscribers (email) VALUES ($1) ON CONFLICT (email) DO NOTHING`, email)
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

// --- feed read queries ---

var recordColumns = []string{
	"id", "url", "title", "excerpt", "body", "image_url", "author",
	"source_name", "adapter", "published_at", "bloom_score", "category",
	"category_id", "source_id", "is_weird", "summary", "tags", "confidence",
	"raw_oracle", "status", "featured", "read_time", "views", "created_at",
}

// ListPublished returns the newest published records, optionally filtered by
// category. The builder exists for this query: the filter set is dynamic.
func (r *PostgresRepository) ListPublished(ctx context.Context, limit int, category string) ([]domain.PublishedRecord, error) {
	q := r.publishedQuery().
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if category != "" {
		q = q.Where(sq.Eq{"category": category})
	}
	return r.queryRecords(ctx, q)
}

// ListOddities returns the newest published curiosity items.
func (r *PostgresRepository) ListOddities(ctx context.Context, limit int) ([]domain.PublishedRecord, error) {
	q := r.publishedQuery().
		Where(sq.Eq{"is_weird": true}).
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	return r.queryRecords(ctx, q)
}

// ListFeatured returns the current featured selection, best first.
func (r *PostgresRepository) ListFeatured(ctx context.Context) ([]domain.PublishedRecord, error) {
	q := r.publishedQuery().
		Where(sq.Eq{"featured": true}).
		OrderBy("bloom_score DESC", "created_at DESC")
	return r.queryRecords(ctx, q)
}

// ListTrending returns the most viewed published records.
func (r *PostgresRepository) ListTrending(ctx context.Context, limit int) ([]domain.PublishedRecord, error) {
	q := r.publishedQuery().
		OrderBy("views DESC", "created_at DESC").
		Limit(uint64(limit))
	return r.queryRecords(ctx, q)
}

func (r *PostgresRepository) publishedQuery() sq.SelectBuilder {
	return r.builder.
		Select(recordColumns...).
		From("news_items").
		Where(sq.Eq{"status": string(domain.StatusPublished)})
}

func (r *PostgresRepository) queryRecords(ctx context.Context, q sq.SelectBuilder) ([]domain.PublishedRecord, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []domain.PublishedRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return records, nil
}

func scanRecord(rows *sql.Rows) (domain.PublishedRecord, error) {
	var (
		rec        domain.PublishedRecord
		categoryID sql.NullInt64
		sourceID   sql.NullInt64
		tags       pq.StringArray
		rawOracle  []byte
		status     string
	)

	err := rows.Scan(
		&rec.ID,
		&rec.Item.URL,
		&rec.Item.Title,
		&rec.Item.Excerpt,
		&rec.Item.Body,
		&rec.Item.ImageURL,
		&rec.Item.Author,
		&rec.Item.SourceName,
		&rec.Item.Adapter,
		&rec.Item.PublishedAt,
		&rec.Result.BloomScore,
		&rec.Result.Category,
		&categoryID,
		&sourceID,
		&rec.Result.IsWeird,
		&rec.Result.Summary,
		&tags,
		&rec.Result.Confidence,
		&rawOracle,
		&status,
		&rec.Featured,
		&rec.ReadTime,
		&rec.Views,
		&rec.CreatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("scan record: %w", err)
	}

	if categoryID.Valid {
		rec.CategoryID = &categoryID.Int64
	}
	if sourceID.Valid {
		rec.SourceID = &sourceID.Int64
	}
	rec.Result.Tags = []string(tags)
	rec.RawOracle = rawOracle
	rec.Status = domain.PublishStatus(status)

	return rec, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
