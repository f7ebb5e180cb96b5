package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/coinconvert/internal/config"
	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

const tradesCSV = "When,Side,Coin,Qty\n" +
	"2021-01-02 03:04:05,BUY,BTC,0.5\n" +
	"2021-01-03 00:00:00,DEPOSIT,BTC,1\n"

func convertTrades(ctx context.Context, raw *table.Table, _ core.Env) (*table.Table, error) {
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
			Action:   raw.Get(i, "Side").String(),
			Symbol:   raw.Get(i, "Coin").String(),
			Volume:   qty,
			Currency: "USD",
		}.Row())
	}
	return out, nil
}

// registerSchemas installs a trades format and a converter that blocks
// until release is closed.
func registerSchemas(t *testing.T, release <-chan struct{}) {
	t.Helper()
	core.Clear()
	t.Cleanup(core.Clear)

	core.Register(core.SchemaDefinition{
		Info:      core.SchemaInfo{Key: "trades0", Exchange: "Test", Label: "Trades"},
		Signature: core.Signature{"When", "Side", "Coin", "Qty"},
		Convert:   convertTrades,
	})
	core.Register(core.SchemaDefinition{
		Info:      core.SchemaInfo{Key: "slow0", Exchange: "Slow"},
		Signature: core.Signature{"Slow"},
		Convert: func(ctx context.Context, _ *table.Table, _ core.Env) (*table.Table, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return table.NewUnified(), nil
		},
	})
}

type fakeHistory struct {
	records []core.Record
	err     error
}

func (f *fakeHistory) Recent(_ context.Context, _ int) ([]core.Record, error) {
	return f.records, f.err
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Rate.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, hist HistoryReader) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := core.NewService(cfg, nil, nil, logger)
	s := NewServer(cfg, svc, hist, nil)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func uploadRequest(t *testing.T, target, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	return er
}

func TestHealth(t *testing.T) {
	registerSchemas(t, nil)
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["schemas"])
}

func TestListSchemas(t *testing.T) {
	registerSchemas(t, nil)
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/schemas", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []SchemaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "slow0", got[0].Key)
	assert.Equal(t, SchemaResponse{
		Key:       "trades0",
		Exchange:  "Test",
		Label:     "Trades",
		Supported: true,
		Columns:   []string{"When", "Side", "Coin", "Qty"},
	}, got[1])
}

func TestConvertJSON(t *testing.T) {
	registerSchemas(t, nil)
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, uploadRequest(t, "/api/convert", "trades.csv", tradesCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got ConvertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "trades.csv", got.File)
	assert.Equal(t, "trades0", got.Schema)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.Retained)
	assert.Equal(t, []RejectionResponse{{Action: "DEPOSIT", Count: 1, Rows: []int{2}}}, got.Rejected)
	assert.Equal(t, table.UnifiedColumns, got.Columns)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "BUY", got.Rows[0][1])
	_, err := uuid.Parse(got.ID)
	assert.NoError(t, err)
}

func TestConvertCSV(t *testing.T) {
	registerSchemas(t, nil)
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, uploadRequest(t, "/api/convert?format=csv", "trades.csv", tradesCSV))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="trades_converted.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t,
		"Date,Action,Symbol,Volume,Currency,Account,Total,Price,Fee,FeeCurrency\n"+
			"2021-01-02 03:04:05 +0000,BUY,BTC,0.5,USD,,,,,\n",
		rec.Body.String())
}

func TestConvertErrors(t *testing.T) {
	registerSchemas(t, nil)
	s := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{
			name:   "unknown format",
			req:    uploadRequest(t, "/api/convert", "x.csv", "Qty,Coin\n1,BTC\n"),
			status: http.StatusUnprocessableEntity,
			code:   "SCH001",
		},
		{
			name:   "unsupported extension",
			req:    uploadRequest(t, "/api/convert", "x.pdf", "whatever"),
			status: http.StatusUnsupportedMediaType,
			code:   "FILE001",
		},
		{
			name:   "not multipart",
			req:    httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader("raw")),
			status: http.StatusBadRequest,
			code:   "UPL004",
		},
		{
			name:   "bad cell",
			req:    uploadRequest(t, "/api/convert", "x.csv", "When,Side,Coin,Qty\nyesterday,BUY,BTC,1\n"),
			status: http.StatusUnprocessableEntity,
			code:   "VAL001",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestConvertTooLarge(t *testing.T) {
	registerSchemas(t, nil)
	cfg := testConfig()
	cfg.Convert.MaxFileSize = 16
	s := newTestServer(t, cfg, nil)

	rec := serve(s, uploadRequest(t, "/api/convert", "trades.csv", tradesCSV))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE002", decodeError(t, rec).Code)
}

func TestConvertBusy(t *testing.T) {
	release := make(chan struct{})
	registerSchemas(t, release)
	cfg := testConfig()
	cfg.Convert.MaxConcurrent = 1
	cfg.Convert.MaxWaitTime = 20 * time.Millisecond
	s := newTestServer(t, cfg, nil)

	slow := uploadRequest(t, "/api/convert", "slow.csv", "Slow\nx\n")
	done := make(chan int)
	go func() {
		done <- serve(s, slow).Code
	}()
	require.Eventually(t, func() bool {
		return s.service.LimiterStatus().Active == 1
	}, time.Second, 5*time.Millisecond)

	rec := serve(s, uploadRequest(t, "/api/convert", "trades.csv", tradesCSV))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UPL001", decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestConvertPage(t *testing.T) {
	registerSchemas(t, nil)
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, uploadRequest(t, "/convert", "trades.csv", tradesCSV))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "1 rows converted successfully. Illegal rows were:")
	assert.Contains(t, body, "<td>DEPOSIT</td><td>1</td><td>2</td>")
}

func TestConvertPageError(t *testing.T) {
	registerSchemas(t, nil)
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, uploadRequest(t, "/convert", "x.csv", "Qty,Coin\n1,BTC\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>Unknown table format</strong>")
	assert.Contains(t, rec.Body.String(), "Code: SCH001")
}

func TestIndex(t *testing.T) {
	registerSchemas(t, nil)
	s := newTestServer(t, testConfig(), &fakeHistory{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<code>trades0</code>")
	assert.Contains(t, rec.Body.String(), "/api/history")
}

func TestHistory(t *testing.T) {
	registerSchemas(t, nil)
	id := uuid.New()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	hist := &fakeHistory{records: []core.Record{{
		ID:        id,
		File:      "trades.csv",
		Schema:    "trades0",
		Total:     2,
		Retained:  1,
		Rejected:  1,
		Status:    core.StatusSucceeded,
		Source:    core.SourceWeb,
		Duration:  40 * time.Millisecond,
		CreatedAt: at,
	}}}
	s := newTestServer(t, testConfig(), hist)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got []HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, id.String(), got[0].ID)
	assert.Equal(t, int64(40), got[0].DurationMs)
	assert.True(t, at.Equal(got[0].CreatedAt))
}

func TestHistoryUnavailable(t *testing.T) {
	registerSchemas(t, nil)

	s := newTestServer(t, testConfig(), nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "HIS001", decodeError(t, rec).Code)

	s = newTestServer(t, testConfig(), &fakeHistory{err: errors.New("connection refused")})
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ERR000", decodeError(t, rec).Code)
}

func TestRateLimit(t *testing.T) {
	registerSchemas(t, nil)
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 2
	s := newTestServer(t, cfg, nil)

	for i := 0; i < 2; i++ {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.RemoteAddr = "198.51.100.9:1234"
	assert.Equal(t, http.StatusOK, serve(s, other).Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(core.ErrTooManyConversions))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(core.ErrSchemaViolation))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestMetricsRoute(t *testing.T) {
	registerSchemas(t, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	svc := core.NewService(cfg, nil, nil, logger)

	s := NewServer(cfg, svc, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "coinconvert_conversions_total 0\n")
	}))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coinconvert_conversions_total")

	s = newTestServer(t, cfg, nil)
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartAfterShutdown(t *testing.T) {
	registerSchemas(t, nil)
	s := newTestServer(t, testConfig(), nil)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.ErrorIs(t, s.Start(), http.ErrServerClosed)
}
