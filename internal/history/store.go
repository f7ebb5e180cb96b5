// Package history records conversion runs in PostgreSQL.
//
// The store is optional: without a DATABASE_URL the service runs with no
// recorder and nothing is persisted.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/coinconvert/internal/core"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// DefaultRecentLimit is used when Recent is called with a limit <= 0.
const DefaultRecentLimit = 50

// MaxRecentLimit caps a single Recent query.
const MaxRecentLimit = 500

const schemaSQL = `CREATE TABLE IF NOT EXISTS conversions (
	id          UUID PRIMARY KEY,
	file_name   TEXT NOT NULL,
	schema_key  TEXT,
	total_rows  INTEGER NOT NULL DEFAULT 0,
	retained    INTEGER NOT NULL DEFAULT 0,
	rejected    INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	error_code  TEXT,
	source      TEXT NOT NULL,
	client_ip   TEXT,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS conversions_created_at_idx ON conversions (created_at DESC)`

const insertSQL = `INSERT INTO conversions
	(id, file_name, schema_key, total_rows, retained, rejected, status, error_code, source, client_ip, duration_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const recentSQL = `SELECT id, file_name, schema_key, total_rows, retained, rejected,
	status, error_code, source, client_ip, duration_ms, created_at
	FROM conversions ORDER BY created_at DESC LIMIT $1`

// Store persists conversion records.
type Store struct {
	db DBTX
}

var _ core.Recorder = (*Store)(nil)

// New creates a store over the given connection or pool.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the conversions table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create conversions table: %w", err)
	}
	return nil
}

// RecordConversion inserts one run.
func (s *Store) RecordConversion(ctx context.Context, rec core.Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tag, err := s.db.Exec(ctx, insertSQL,
		pgtype.UUID{Bytes: rec.ID, Valid: true},
		rec.File,
		optionalText(rec.Schema),
		rec.Total,
		rec.Retained,
		rec.Rejected,
		rec.Status,
		optionalText(rec.ErrorCode),
		rec.Source,
		optionalText(rec.ClientIP),
		rec.Duration.Milliseconds(),
		pgtype.Timestamptz{Time: createdAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert conversion %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("insert conversion %s: %d rows affected", rec.ID, tag.RowsAffected())
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]core.Record, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	rows, err := s.db.Query(ctx, recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversions: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read conversions: %w", err)
	}
	return out, nil
}

// Count returns the number of recorded runs.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM conversions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count conversions: %w", err)
	}
	return n, nil
}

func scanRecord(row pgx.Row) (core.Record, error) {
	var (
		id         pgtype.UUID
		file       string
		schemaKey  pgtype.Text
		total      int32
		retained   int32
		rejected   int32
		status     string
		errorCode  pgtype.Text
		source     string
		clientIP   pgtype.Text
		durationMs int64
		createdAt  pgtype.Timestamptz
	)
	err := row.Scan(
		&id, &file, &schemaKey, &total, &retained, &rejected,
		&status, &errorCode, &source, &clientIP, &durationMs, &createdAt,
	)
	if err != nil {
		return core.Record{}, err
	}

	rec := core.Record{
		File:      file,
		Total:     int(total),
		Retained:  int(retained),
		Rejected:  int(rejected),
		Status:    status,
		Source:    source,
		Duration:  time.Duration(durationMs) * time.Millisecond,
		CreatedAt: createdAt.Time,
	}
	if id.Valid {
		rec.ID = uuid.UUID(id.Bytes)
	}
	if schemaKey.Valid {
		rec.Schema = schemaKey.String
	}
	if errorCode.Valid {
		rec.ErrorCode = errorCode.String
	}
	if clientIP.Valid {
		rec.ClientIP = clientIP.String
	}
	return rec, nil
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
