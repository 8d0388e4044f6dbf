// Package storage persists content records in sqlite. The pipeline uses
// it only as a cache and write sink; the list queries serve the control
// API.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"FeedWatcher/internal/domain"
	"FeedWatcher/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS content_records (
	id          TEXT PRIMARY KEY,
	source_name TEXT NOT NULL,
	author      TEXT NOT NULL DEFAULT '',
	item_time   INTEGER NOT NULL DEFAULT 0,
	title       TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	label       TEXT NOT NULL DEFAULT '',
	ai_summary  TEXT NOT NULL DEFAULT '',
	embedding   TEXT NOT NULL DEFAULT '',
	updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_content_source ON content_records(source_name);
CREATE INDEX IF NOT EXISTS idx_content_time ON content_records(item_time);
`

// SQLiteStore implements ports.ContentStore over a single database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.ContentStore = (*SQLiteStore)(nil)

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Serialized access keeps concurrent upserts last-writer-wins
	// without SQLITE_BUSY surprises.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle so the stats sink can share the file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get looks up a record by composite id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.ContentRecord, bool, error) {
	query, args, err := sq.Select("id", "source_name", "author", "item_time", "title", "url", "body", "label", "ai_summary", "embedding", "updated_at").
		From("content_records").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.ContentRecord{}, false, fmt.Errorf("build query: %w", err)
	}

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ContentRecord{}, false, nil
	}
	if err != nil {
		return domain.ContentRecord{}, false, fmt.Errorf("get record %s: %w", id, err)
	}
	return rec, true, nil
}

// Upsert writes the record, overwriting any previous row for the same id.
func (s *SQLiteStore) Upsert(ctx context.Context, rec domain.ContentRecord) error {
	embedding := ""
	if len(rec.Embedding) > 0 {
		raw, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		embedding = string(raw)
	}

	query, args, err := sq.Insert("content_records").
		Columns("id", "source_name", "author", "item_time", "title", "url", "body", "label", "ai_summary", "embedding", "updated_at").
		Values(rec.ID, rec.SourceName, rec.By, rec.Time.Unix(), rec.Title, rec.URL, rec.Text, rec.Label, rec.AISummary, embedding, time.Now().Unix()).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			source_name = excluded.source_name,
			author = excluded.author,
			item_time = excluded.item_time,
			title = excluded.title,
			url = excluded.url,
			body = excluded.body,
			label = excluded.label,
			ai_summary = excluded.ai_summary,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}
	return nil
}

// ListOptions filters and pages the stored records.
type ListOptions struct {
	Page        int
	PerPage     int
	SortBy      string
	SortDesc    bool
	SourceNames []string
	Query       string
}

var sortColumns = map[string]string{
	"time":        "item_time",
	"title":       "title",
	"source_name": "source_name",
	"updated_at":  "updated_at",
}

// List returns one page of matching records plus the total match count.
// Embeddings are omitted; they can be large and the listing API never
// needs them.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]domain.ContentRecord, int, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PerPage < 1 {
		opts.PerPage = 20
	}
	if opts.PerPage > 100 {
		opts.PerPage = 100
	}

	where := sq.And{}
	if len(opts.SourceNames) > 0 {
		where = append(where, sq.Eq{"source_name": opts.SourceNames})
	}
	if opts.Query != "" {
		like := "%" + opts.Query + "%"
		where = append(where, sq.Or{
			sq.Like{"title": like},
			sq.Like{"ai_summary": like},
		})
	}

	countQuery, countArgs, err := sq.Select("COUNT(*)").From("content_records").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = "item_time"
	}
	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}

	query, args, err := sq.Select("id", "source_name", "author", "item_time", "title", "url", "body", "label", "ai_summary", "''", "updated_at").
		From("content_records").
		Where(where).
		OrderBy(column + " " + direction).
		Limit(uint64(opts.PerPage)).
		Offset(uint64((opts.Page - 1) * opts.PerPage)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []domain.ContentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration: %w", err)
	}
	return records, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.ContentRecord, error) {
	var (
		rec       domain.ContentRecord
		itemTime  int64
		embedding string
		updatedAt int64
	)
	err := row.Scan(&rec.ID, &rec.SourceName, &rec.By, &itemTime, &rec.Title, &rec.URL, &rec.Text, &rec.Label, &rec.AISummary, &embedding, &updatedAt)
	if err != nil {
		return domain.ContentRecord{}, err
	}
	rec.Time = time.Unix(itemTime, 0).UTC()
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if embedding != "" {
		if err := json.Unmarshal([]byte(embedding), &rec.Embedding); err != nil {
			return domain.ContentRecord{}, fmt.Errorf("decode embedding: %w", err)
		}
	}
	return rec, nil
}
