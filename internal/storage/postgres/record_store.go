// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

const defaultTable = "scraped_data"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RecordStoreConfig controls the Postgres connection pool used for scraped records.
type RecordStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// RecordStore persists scraped records in a single table keyed by id and scoped by user_id.
type RecordStore struct {
	pool  pool
	table string
}

// NewRecordStore creates a Postgres-backed RecordStore using the provided config.
func NewRecordStore(ctx context.Context, cfg RecordStoreConfig) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecordStore{pool: p, table: table}, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(p pool, table string) (*RecordStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &RecordStore{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Migrate creates the records table and its indexes when missing.
func (s *RecordStore) Migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	url TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	headings JSONB NOT NULL,
	links JSONB NOT NULL,
	images JSONB NOT NULL,
	metadata JSONB NOT NULL,
	company_info JSONB,
	technologies JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_created_idx ON %s (user_id, created_at DESC)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_url_idx ON %s (url)`, s.table, s.table),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.table, err)
		}
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (s *RecordStore) Ping(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Insert writes a new record row.
func (s *RecordStore) Insert(ctx context.Context, record scraper.ScrapedRecord) error {
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}
	doc, err := encodeRecord(record)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	user_id,
	url,
	title,
	description,
	content,
	headings,
	links,
	images,
	metadata,
	company_info,
	technologies,
	created_at,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
)`, s.table)

	args := []any{
		record.ID,
		record.UserID,
		record.URL,
		record.Title,
		record.Description,
		record.Content,
		doc.headings,
		doc.links,
		doc.images,
		doc.metadata,
		doc.companyInfo,
		doc.technologies,
		record.CreatedAt,
		record.UpdatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// ListByUser returns up to limit summaries owned by userID, newest first.
func (s *RecordStore) ListByUser(ctx context.Context, userID string, limit int) ([]scraper.RecordSummary, error) {
	query := fmt.Sprintf(`
SELECT id, url, title, description, metadata, company_info, user_id, created_at, updated_at
FROM %s
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`, s.table)

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := []scraper.RecordSummary{}
	for rows.Next() {
		var (
			summary     scraper.RecordSummary
			metadata    []byte
			companyInfo []byte
		)
		if err := rows.Scan(
			&summary.ID,
			&summary.URL,
			&summary.Title,
			&summary.Description,
			&metadata,
			&companyInfo,
			&summary.UserID,
			&summary.CreatedAt,
			&summary.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan record summary: %w", err)
		}
		if err := decodeJSON(metadata, &summary.Metadata); err != nil {
			return nil, err
		}
		if err := decodeCompanyInfo(companyInfo, &summary.CompanyInfo); err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// GetByID returns the full record if userID owns it, or scraper.ErrRecordNotFound.
func (s *RecordStore) GetByID(ctx context.Context, id, userID string) (scraper.ScrapedRecord, error) {
	query := fmt.Sprintf(`
SELECT id, user_id, url, title, description, content, headings, links, images,
	metadata, company_info, technologies, created_at, updated_at
FROM %s
WHERE id = $1 AND user_id = $2`, s.table)

	var (
		record scraper.ScrapedRecord
		doc    recordDocument
	)
	err := s.pool.QueryRow(ctx, query, id, userID).Scan(
		&record.ID,
		&record.UserID,
		&record.URL,
		&record.Title,
		&record.Description,
		&record.Content,
		&doc.headings,
		&doc.links,
		&doc.images,
		&doc.metadata,
		&doc.companyInfo,
		&doc.technologies,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scraper.ScrapedRecord{}, scraper.ErrRecordNotFound
		}
		return scraper.ScrapedRecord{}, fmt.Errorf("get record: %w", err)
	}
	if err := doc.decodeInto(&record); err != nil {
		return scraper.ScrapedRecord{}, err
	}
	return record, nil
}

// DeleteAllByUser removes every record owned by userID.
func (s *RecordStore) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByIDs removes the listed records owned by userID.
func (s *RecordStore) DeleteByIDs(ctx context.Context, ids []string, userID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND id = ANY($2)`, s.table)
	tag, err := s.pool.Exec(ctx, query, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete records by id: %w", err)
	}
	return tag.RowsAffected(), nil
}
