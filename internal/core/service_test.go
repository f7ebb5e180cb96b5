package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/coinconvert/internal/config"
	"github.com/JonMunkholm/coinconvert/internal/reconcile"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

var simpleSignature = Signature{"When", "Side", "Coin", "Qty", "Quote"}

// convertSimple maps the test export one row at a time.
func convertSimple(_ context.Context, raw *table.Table, _ Env) (*table.Table, error) {
	out := table.NewUnified()
	for i := 0; i < raw.Len(); i++ {
		at, err := raw.Get(i, "When").Timestamp()
		if err != nil {
			return nil, err
		}
		qty, err := raw.Get(i, "Qty").Decimal()
		if err != nil {
			return nil, err
		}
		out.MustAppend(table.Unified{
			Date:     at,
			Action:   strings.ToUpper(raw.Get(i, "Side").String()),
			Symbol:   raw.Get(i, "Coin").String(),
			Volume:   qty,
			Currency: raw.Get(i, "Quote").String(),
		}.Row())
	}
	return out, nil
}

func registerTestSchemas(t *testing.T) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)

	Register(SchemaDefinition{
		Info:      SchemaInfo{Key: "simple0", Exchange: "Simple"},
		Signature: simpleSignature,
		Convert:   convertSimple,
	})
	Register(SchemaDefinition{
		Info:      SchemaInfo{Key: "broken0", Exchange: "Broken"},
		Signature: Signature{"Broken"},
		Convert: func(context.Context, *table.Table, Env) (*table.Table, error) {
			return table.New(table.ColDate, table.ColAction), nil
		},
	})
	Register(SchemaDefinition{
		Info:      SchemaInfo{Key: "ambiguous0", Exchange: "Ambiguous"},
		Signature: Signature{"Ambiguous"},
		Convert: func(context.Context, *table.Table, Env) (*table.Table, error) {
			return nil, &reconcile.OrderError{Seq: "1", Side: "BUY", Err: reconcile.ErrAmbiguousMatch}
		},
	})
	Register(SchemaDefinition{
		Info:      SchemaInfo{Key: "panics0", Exchange: "Panics"},
		Signature: Signature{"Panics"},
		Convert: func(context.Context, *table.Table, Env) (*table.Table, error) {
			panic("converter bug")
		},
	})
	Register(SchemaDefinition{
		Info:      SchemaInfo{Key: "exodus0", Exchange: "Exodus"},
		Signature: Signature{"Exodus"},
	})
}

const simpleCSV = "When,Side,Coin,Qty,Quote\n" +
	"2021-01-02 03:04:05,buy,BTC,0.5,USD\n" +
	"2021-01-03 00:00:00,deposit,BTC,1,USD\n" +
	"2021-01-04 10:00:00,sell,ETH,2.25,BTC\n"

type fakeRecorder struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (f *fakeRecorder) RecordConversion(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.err
}

func testService(t *testing.T, rec Recorder) *Service {
	t.Helper()
	cfg := config.Defaults()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(cfg, nil, rec, logger)
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConvertFileWritesSibling(t *testing.T) {
	registerTestSchemas(t)
	rec := &fakeRecorder{}
	svc := testService(t, rec)
	path := writeInput(t, "trades.csv", simpleCSV)

	res, err := svc.ConvertFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(path), "trades_converted.csv"), res.OutputPath)
	assert.Equal(t, "simple0", res.Schema.Key)
	assert.Equal(t, 3, res.Total)

	written, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t,
		"Date,Action,Symbol,Volume,Currency,Account,Total,Price,Fee,FeeCurrency\n"+
			"2021-01-02 03:04:05 +0000,BUY,BTC,0.5,USD,,,,,\n"+
			"2021-01-04 10:00:00 +0000,SELL,ETH,2.25,BTC,,,,,\n",
		string(written))

	want := "2 rows converted successfully. Illegal rows were:\n\n" +
		"Action   Number of rows  Row Index\n" +
		"DEPOSIT  1               2"
	assert.Equal(t, want, res.Summary())

	require.Len(t, rec.records, 1)
	got := rec.records[0]
	assert.Equal(t, res.ID, got.ID)
	assert.Equal(t, StatusSucceeded, got.Status)
	assert.Equal(t, "trades.csv", got.File)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.Retained)
	assert.Equal(t, 1, got.Rejected)
	assert.Empty(t, got.ErrorCode)
}

func TestConvertFileIsIdempotent(t *testing.T) {
	registerTestSchemas(t)
	svc := testService(t, nil)
	path := writeInput(t, "trades.csv", simpleCSV)

	first, err := svc.ConvertFile(context.Background(), path)
	require.NoError(t, err)
	a, err := os.ReadFile(first.OutputPath)
	require.NoError(t, err)

	second, err := svc.ConvertFile(context.Background(), path)
	require.NoError(t, err)
	b, err := os.ReadFile(second.OutputPath)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(a, b))
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRunMessages(t *testing.T) {
	registerTestSchemas(t)

	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{
			name:    "all rows",
			file:    "ok.csv",
			content: "When,Side,Coin,Qty,Quote\n2021-01-02,BUY,BTC,1,USD\n",
			want:    "All 1 rows were converted successfully.",
		},
		{
			name:    "unknown format",
			file:    "unknown.csv",
			content: "Side,When,Coin,Qty,Quote\n",
			want:    "Unknown table format. Please contact the application's author.",
		},
		{
			name:    "missing mandatory columns",
			file:    "broken.csv",
			content: "Broken\nx\n",
			want:    "Internal Error. Please contact the application's author.",
		},
		{
			name:    "converter panic",
			file:    "panics.csv",
			content: "Panics\nx\n",
			want:    defaultMessage.Text(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testService(t, nil)
			path := writeInput(t, tt.file, tt.content)
			assert.Equal(t, tt.want, svc.Run(context.Background(), path))
		})
	}
}

func TestRunReportsUnwritableFolder(t *testing.T) {
	registerTestSchemas(t)
	svc := testService(t, nil)
	path := writeInput(t, "trades.csv", simpleCSV)
	// A directory in the way of the output file.
	require.NoError(t, os.Mkdir(filepath.Join(filepath.Dir(path), "trades_converted.csv"), 0o755))

	_, err := svc.ConvertFile(context.Background(), path)
	require.ErrorIs(t, err, ErrWrite)

	assert.Equal(t,
		"Unable to save file in folder. Please make sure it exists and that you have sufficient permissions to write to that directory, and try again.",
		svc.Run(context.Background(), path))
}

func TestConvertTableErrors(t *testing.T) {
	registerTestSchemas(t)
	svc := testService(t, nil)

	tests := []struct {
		name   string
		header []string
		want   error
	}{
		{name: "not supported", header: []string{"Exodus"}, want: ErrNotSupported},
		{name: "schema violation", header: []string{"Broken"}, want: ErrSchemaViolation},
		{name: "converter error", header: []string{"Ambiguous"}, want: reconcile.ErrAmbiguousMatch},
		{name: "unknown", header: []string{"Qty", "Coin"}, want: ErrUnknownSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ConvertTable(context.Background(), table.FromRecords(tt.header, nil))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConvertUploadRecordsFailure(t *testing.T) {
	registerTestSchemas(t)
	rec := &fakeRecorder{err: errors.New("database down")}
	svc := testService(t, rec)

	_, err := svc.ConvertUpload(context.Background(), "orders.csv", strings.NewReader("Ambiguous\nx\n"))
	require.ErrorIs(t, err, reconcile.ErrAmbiguousMatch)

	require.Len(t, rec.records, 1)
	assert.Equal(t, StatusFailed, rec.records[0].Status)
	assert.Equal(t, "REC002", rec.records[0].ErrorCode)
	assert.Equal(t, "ambiguous0", rec.records[0].Schema)
}

func TestConvertUploadDoesNotWrite(t *testing.T) {
	registerTestSchemas(t)
	svc := testService(t, nil)

	res, err := svc.ConvertUpload(context.Background(), "trades.csv", strings.NewReader(simpleCSV))
	require.NoError(t, err)
	assert.Empty(t, res.OutputPath)
	assert.Equal(t, 2, res.Filtered.Retained.Len())
}

func TestConvertUploadBusy(t *testing.T) {
	registerTestSchemas(t)
	cfg := config.Defaults()
	cfg.Convert.MaxConcurrent = 1
	cfg.Convert.MaxWaitTime = 20 * time.Millisecond
	svc := NewService(cfg, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.True(t, svc.limiter.TryAcquire())
	defer svc.limiter.Release()

	_, err := svc.ConvertUpload(context.Background(), "trades.csv", strings.NewReader(simpleCSV))
	assert.ErrorIs(t, err, ErrTooManyConversions)
	assert.Equal(t, LimiterStatus{Active: 1, Available: 0, MaxConcurrent: 1}, svc.LimiterStatus())
}

func TestRecordCarriesSourceAndClientIP(t *testing.T) {
	registerTestSchemas(t)
	rec := &fakeRecorder{}
	svc := testService(t, rec)

	ctx := ContextWithSource(context.Background(), SourceWeb)
	ctx = ContextWithClientIP(ctx, "192.0.2.10")
	_, err := svc.ConvertUpload(ctx, "trades.csv", strings.NewReader(simpleCSV))
	require.NoError(t, err)

	require.Len(t, rec.records, 1)
	assert.Equal(t, SourceWeb, rec.records[0].Source)
	assert.Equal(t, "192.0.2.10", rec.records[0].ClientIP)
}

func TestSourceDefaultsToCLI(t *testing.T) {
	assert.Equal(t, SourceCLI, SourceFromContext(context.Background()))
	assert.Empty(t, ClientIPFromContext(context.Background()))
}

func TestRunFileReturnsError(t *testing.T) {
	registerTestSchemas(t)
	svc := testService(t, nil)

	text, err := svc.RunFile(context.Background(), writeInput(t, "panics.csv", "Panics\nx\n"))
	require.Error(t, err)
	assert.Equal(t, defaultMessage.Text(), text)
	assert.Contains(t, err.Error(), "converter bug")

	text, err = svc.RunFile(context.Background(), writeInput(t, "trades.csv", simpleCSV))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "2 rows converted successfully."))
}

func TestRecordersFanOut(t *testing.T) {
	ok := &fakeRecorder{}
	failing := &fakeRecorder{err: errors.New("disk full")}
	rs := Recorders{failing, ok}

	err := rs.RecordConversion(context.Background(), Record{File: "a.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, ok.records, 1)
	assert.Len(t, failing.records, 1)

	assert.NoError(t, Recorders{ok}.RecordConversion(context.Background(), Record{}))
}
