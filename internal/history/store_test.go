package history

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/coinconvert/internal/core"
)

type call struct {
	sql  string
	args []any
}

// fakeDB records statements and serves canned rows.
type fakeDB struct {
	calls   []call
	tag     pgconn.CommandTag
	execErr error
	rows    [][]any
	count   int64
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	return f.tag, f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	return &fakeRows{data: f.rows, pos: -1}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, call{sql: sql, args: args})
	return fakeRow{vals: []any{f.count}}
}

type fakeRow struct{ vals []any }

func (r fakeRow) Scan(dest ...any) error { return assign(r.vals, dest) }

type fakeRows struct {
	data [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool                                   { r.pos++; return r.pos < len(r.data) }
func (r *fakeRows) Scan(dest ...any) error                       { return assign(r.data[r.pos], dest) }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.pos], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func assign(vals, dest []any) error {
	if len(vals) != len(dest) {
		return errors.New("column count mismatch")
	}
	for i, v := range vals {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, New(db).EnsureSchema(context.Background()))
	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "CREATE TABLE IF NOT EXISTS conversions")
}

func TestEnsureSchemaError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("permission denied")}
	err := New(db).EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestRecordConversion(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
	id := uuid.New()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	err := New(db).RecordConversion(context.Background(), core.Record{
		ID:        id,
		File:      "trades.csv",
		Schema:    "bitfinex0",
		Total:     10,
		Retained:  8,
		Rejected:  2,
		Status:    core.StatusSucceeded,
		Source:    core.SourceWeb,
		Duration:  1500 * time.Millisecond,
		CreatedAt: at,
	})
	require.NoError(t, err)

	require.Len(t, db.calls, 1)
	c := db.calls[0]
	assert.True(t, strings.HasPrefix(c.sql, "INSERT INTO conversions"))
	require.Len(t, c.args, 12)
	assert.Equal(t, pgtype.UUID{Bytes: id, Valid: true}, c.args[0])
	assert.Equal(t, "trades.csv", c.args[1])
	assert.Equal(t, pgtype.Text{String: "bitfinex0", Valid: true}, c.args[2])
	assert.Equal(t, 8, c.args[4])
	assert.Equal(t, core.StatusSucceeded, c.args[6])
	assert.Equal(t, pgtype.Text{}, c.args[7], "empty error code is NULL")
	assert.Equal(t, pgtype.Text{}, c.args[9], "empty client ip is NULL")
	assert.Equal(t, int64(1500), c.args[10])
	assert.Equal(t, pgtype.Timestamptz{Time: at, Valid: true}, c.args[11])
}

func TestRecordConversionNoRows(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 0")}
	err := New(db).RecordConversion(context.Background(), core.Record{ID: uuid.New(), File: "x.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 rows affected")
}

func TestRecent(t *testing.T) {
	id := uuid.New()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: [][]any{{
		pgtype.UUID{Bytes: id, Valid: true},
		"orders.xlsx",
		pgtype.Text{String: "cex0", Valid: true},
		int32(4), int32(0), int32(0),
		core.StatusFailed,
		pgtype.Text{String: "REC002", Valid: true},
		core.SourceWeb,
		pgtype.Text{String: "10.0.0.7", Valid: true},
		int64(250),
		pgtype.Timestamptz{Time: at, Valid: true},
	}}}

	got, err := New(db).Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.Record{
		ID:        id,
		File:      "orders.xlsx",
		Schema:    "cex0",
		Total:     4,
		Status:    core.StatusFailed,
		ErrorCode: "REC002",
		Source:    core.SourceWeb,
		ClientIP:  "10.0.0.7",
		Duration:  250 * time.Millisecond,
		CreatedAt: at,
	}, got[0])
	assert.Equal(t, []any{DefaultRecentLimit}, db.calls[0].args)
}

func TestRecentCapsLimit(t *testing.T) {
	db := &fakeDB{}
	got, err := New(db).Recent(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []any{MaxRecentLimit}, db.calls[0].args)
}

func TestCount(t *testing.T) {
	db := &fakeDB{count: 42}
	n, err := New(db).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}
