package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/logging"
	"github.com/JonMunkholm/coinconvert/internal/tabular"
	"github.com/JonMunkholm/coinconvert/internal/web/middleware"
	"github.com/JonMunkholm/coinconvert/internal/web/views"
)

// multipartOverhead is allowed on top of the file size limit for the form
// envelope.
const multipartOverhead = 1 << 20

// SchemaResponse describes one registered format.
type SchemaResponse struct {
	Key       string   `json:"key"`
	Exchange  string   `json:"exchange"`
	Label     string   `json:"label,omitempty"`
	Supported bool     `json:"supported"`
	Columns   []string `json:"columns"`
}

// RejectionResponse is one group of dropped rows.
type RejectionResponse struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
	Rows   []int  `json:"rows"`
}

// ConvertResponse is the JSON result of POST /api/convert.
type ConvertResponse struct {
	ID         string              `json:"id"`
	File       string              `json:"file"`
	Schema     string              `json:"schema"`
	Exchange   string              `json:"exchange"`
	Total      int                 `json:"total"`
	Retained   int                 `json:"retained"`
	Rejected   []RejectionResponse `json:"rejected"`
	Summary    string              `json:"summary"`
	DurationMs int64               `json:"duration_ms"`
	Columns    []string            `json:"columns"`
	Rows       [][]string          `json:"rows"`
}

// HistoryEntry is one recorded conversion.
type HistoryEntry struct {
	ID         string    `json:"id"`
	File       string    `json:"file"`
	Schema     string    `json:"schema,omitempty"`
	Total      int       `json:"total"`
	Retained   int       `json:"retained"`
	Rejected   int       `json:"rejected"`
	Status     string    `json:"status"`
	ErrorCode  string    `json:"error_code,omitempty"`
	Source     string    `json:"source"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := views.IndexData{
		MaxFileSize:    s.cfg.Convert.MaxFileSize,
		HistoryEnabled: s.history != nil,
	}
	for _, def := range s.service.ListSchemas() {
		data.Schemas = append(data.Schemas, views.SchemaRow{
			Key:       def.Info.Key,
			Exchange:  def.Info.Exchange,
			Label:     def.Info.Label,
			Supported: def.Supported(),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Page("Convert", views.Index(data)).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"schemas":     core.SchemaCount(),
		"conversions": s.service.LimiterStatus(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.LimiterStatus())
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	defs := s.service.ListSchemas()
	out := make([]SchemaResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, SchemaResponse{
			Key:       def.Info.Key,
			Exchange:  def.Info.Exchange,
			Label:     def.Info.Label,
			Supported: def.Supported(),
			Columns:   def.Signature,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleConvert converts an uploaded export. The result is JSON, or the
// converted CSV itself when format=csv.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	res, ok := s.convertUpload(w, r)
	if !ok {
		return
	}

	if strings.EqualFold(r.FormValue("format"), "csv") {
		name := tabular.OutputPath(res.File, s.cfg.Convert.OutputSuffix)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(name)))
		w.Header().Set("X-Conversion-Id", res.ID.String())
		if err := tabular.WriteCSV(w, res.Filtered.Retained); err != nil {
			logging.FromContext(r.Context()).Error("write csv response", "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, toConvertResponse(res))
}

// handleConvertPage converts an upload from the HTML form and renders the
// report.
func (s *Server) handleConvertPage(w http.ResponseWriter, r *http.Request) {
	res, ok := s.convertUpload(w, r)
	if !ok {
		return
	}

	data := views.ReportData{
		ID:         res.ID.String(),
		File:       res.File,
		Exchange:   res.Schema.Exchange,
		Schema:     res.Schema.Key,
		Total:      res.Total,
		Retained:   res.Filtered.Retained.Len(),
		Summary:    strings.SplitN(res.Summary(), "\n", 2)[0],
		DurationMs: res.Duration.Milliseconds(),
	}
	for _, rej := range res.Filtered.Rejected {
		data.Rejections = append(data.Rejections, views.RejectionRow{
			Label: displayLabel(rej.Label),
			Count: rej.Count,
			Rows:  joinRows(rej.Rows),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Page("Report", views.Report(data)).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render report", "error", err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, r, errHistoryDisabled)
		return
	}

	records, err := s.history.Recent(r.Context(), parseIntParam(r, "limit", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, HistoryEntry{
			ID:         rec.ID.String(),
			File:       rec.File,
			Schema:     rec.Schema,
			Total:      rec.Total,
			Retained:   rec.Retained,
			Rejected:   rec.Rejected,
			Status:     rec.Status,
			ErrorCode:  rec.ErrorCode,
			Source:     rec.Source,
			DurationMs: rec.Duration.Milliseconds(),
			CreatedAt:  rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// convertUpload reads the "file" form field and runs it through the
// pipeline. On failure the error response is already written.
func (s *Server) convertUpload(w http.ResponseWriter, r *http.Request) (*core.Result, bool) {
	file, header, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	defer file.Close()

	ctx := core.ContextWithSource(r.Context(), core.SourceWeb)
	ctx = core.ContextWithClientIP(ctx, middleware.ClientIP(r))

	res, err := s.service.ConvertUpload(ctx, header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	return res, true
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	maxSize := s.cfg.Convert.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, fmt.Errorf("%w: upload over %d bytes", tabular.ErrFileTooLarge, maxSize)
		}
		return nil, nil, fmt.Errorf("%w: %w", errMissingFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errMissingFile, err)
	}
	if header.Size > maxSize {
		file.Close()
		return nil, nil, fmt.Errorf("%w: %d bytes", tabular.ErrFileTooLarge, header.Size)
	}
	return file, header, nil
}

func toConvertResponse(res *core.Result) ConvertResponse {
	out := ConvertResponse{
		ID:         res.ID.String(),
		File:       res.File,
		Schema:     res.Schema.Key,
		Exchange:   res.Schema.Exchange,
		Total:      res.Total,
		Retained:   res.Filtered.Retained.Len(),
		Rejected:   make([]RejectionResponse, 0, len(res.Filtered.Rejected)),
		Summary:    res.Summary(),
		DurationMs: res.Duration.Milliseconds(),
	}
	for _, rej := range res.Filtered.Rejected {
		out.Rejected = append(out.Rejected, RejectionResponse{Action: rej.Label, Count: rej.Count, Rows: rej.Rows})
	}
	records := res.Filtered.Retained.Records()
	out.Columns = records[0]
	out.Rows = records[1:]
	return out
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func displayLabel(label string) string {
	if label == "" {
		return "(empty)"
	}
	return label
}

func joinRows(rows []int) string {
	parts := make([]string, len(rows))
	for i, n := range rows {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
