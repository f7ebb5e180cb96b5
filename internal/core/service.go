package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/coinconvert/internal/config"
	"github.com/JonMunkholm/coinconvert/internal/rates"
	"github.com/JonMunkholm/coinconvert/internal/table"
	"github.com/JonMunkholm/coinconvert/internal/tabular"
)

// Service runs the conversion pipeline: read, identify, convert, validate,
// filter, persist and summarize.
type Service struct {
	cfg      config.ConvertConfig
	env      Env
	recorder Recorder
	limiter  *Limiter
	logger   *slog.Logger
}

// NewService creates a Service. lookup may be nil, in which case converters
// that need historical prices fail with rates.ErrDataSource. rec may be nil.
func NewService(cfg *config.Config, lookup rates.Lookup, rec Recorder, logger *slog.Logger) *Service {
	if lookup == nil {
		lookup = rates.Unavailable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg.Convert,
		env:      Env{Rates: lookup, Logger: logger},
		recorder: rec,
		limiter:  NewLimiter(cfg.Convert.MaxConcurrent, cfg.Convert.MaxWaitTime),
		logger:   logger,
	}
}

// Result describes one finished conversion.
type Result struct {
	ID         uuid.UUID
	File       string
	Schema     SchemaInfo
	Total      int
	Filtered   Filtered
	OutputPath string // empty when nothing was written
	Duration   time.Duration
}

// Summary returns the user-facing report.
func (r *Result) Summary() string {
	return Summary(r.Filtered)
}

// ListSchemas returns every registered schema.
func (s *Service) ListSchemas() []SchemaDefinition {
	return All()
}

// ConvertTable identifies raw, converts it, checks the mandatory columns and
// filters the rows. raw is not modified.
func (s *Service) ConvertTable(ctx context.Context, raw *table.Table) (Conversion, error) {
	def, err := Identify(raw.Columns())
	if err != nil {
		return Conversion{}, err
	}

	out, err := def.Convert(ctx, raw, s.env)
	if err != nil {
		return Conversion{Schema: def.Info}, fmt.Errorf("convert %s: %w", def.Info.Key, err)
	}

	if missing := out.MissingColumns(table.MandatoryColumns); len(missing) > 0 {
		return Conversion{Schema: def.Info}, fmt.Errorf("%w: %s output lacks %s",
			ErrSchemaViolation, def.Info.Key, strings.Join(missing, ", "))
	}

	return Conversion{
		Schema:   def.Info,
		Total:    out.Len(),
		Filtered: FilterRows(out),
	}, nil
}

// ConvertReader reads a CSV or XLSX stream, using name to pick the format,
// and converts it.
func (s *Service) ConvertReader(ctx context.Context, name string, r io.Reader) (Conversion, error) {
	raw, err := tabular.Read(name, r, s.readOptions())
	if err != nil {
		return Conversion{}, err
	}
	return s.ConvertTable(ctx, raw)
}

// ConvertFile converts the file at path and writes the retained rows next
// to it as "<stem><suffix>.csv".
func (s *Service) ConvertFile(ctx context.Context, path string) (*Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res := newResult(path)
	log := s.logger.With("conversion_id", res.ID, "file", res.File)

	conv, err := s.convertPath(ctx, path)
	res.fill(conv)
	if err == nil {
		res.OutputPath = tabular.OutputPath(path, s.cfg.OutputSuffix)
		if werr := tabular.WriteFile(res.OutputPath, conv.Filtered.Retained); werr != nil {
			res.OutputPath = ""
			err = fmt.Errorf("%w: %w", ErrWrite, werr)
		}
	}

	s.finish(ctx, log, res, start, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ConvertUpload converts an uploaded stream without writing to disk. At
// most Convert.MaxConcurrent uploads run at once; a caller that cannot get
// a slot within Convert.MaxWaitTime receives ErrTooManyConversions.
func (s *Service) ConvertUpload(ctx context.Context, name string, r io.Reader) (*Result, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res := newResult(name)
	log := s.logger.With("conversion_id", res.ID, "file", res.File)

	conv, err := s.ConvertReader(ctx, name, r)
	res.fill(conv)

	s.finish(ctx, log, res, start, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Run converts path and returns the text shown to the user: the summary on
// success, otherwise the fixed message for the error's kind. Run never
// panics.
func (s *Service) Run(ctx context.Context, path string) string {
	text, _ := s.RunFile(ctx, path)
	return text
}

// RunFile is Run that also returns the underlying error, so callers can set
// an exit status. A converter panic is recovered and reported as ERR000.
func (s *Service) RunFile(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in conversion", "file", path, "panic", r)
			text = defaultMessage.Text()
			err = fmt.Errorf("panic converting %s: %v", filepath.Base(path), r)
		}
	}()

	res, err := s.ConvertFile(ctx, path)
	if err != nil {
		return MapError(err).Text(), err
	}
	return res.Summary(), nil
}

// LimiterStatus reports upload slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForConversions blocks until running uploads finish or ctx is done.
func (s *Service) WaitForConversions(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) convertPath(ctx context.Context, path string) (Conversion, error) {
	raw, err := tabular.ReadFile(path, s.readOptions())
	if err != nil {
		return Conversion{}, err
	}
	return s.ConvertTable(ctx, raw)
}

func (s *Service) readOptions() tabular.Options {
	return tabular.Options{MaxBytes: s.cfg.MaxFileSize}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

func newResult(name string) *Result {
	return &Result{
		ID:   uuid.New(),
		File: filepath.Base(name),
	}
}

func (r *Result) fill(c Conversion) {
	r.Schema = c.Schema
	r.Total = c.Total
	r.Filtered = c.Filtered
}

// finish logs the outcome and hands it to the recorder.
func (s *Service) finish(ctx context.Context, log *slog.Logger, res *Result, start time.Time, err error) {
	res.Duration = time.Since(start)

	rec := Record{
		ID:        res.ID,
		File:      res.File,
		Schema:    res.Schema.Key,
		Total:     res.Total,
		Rejected:  res.Filtered.RejectedCount(),
		Status:    StatusSucceeded,
		Source:    SourceFromContext(ctx),
		ClientIP:  ClientIPFromContext(ctx),
		Duration:  res.Duration,
		CreatedAt: time.Now().UTC(),
	}
	if res.Filtered.Retained != nil {
		rec.Retained = res.Filtered.Retained.Len()
	}

	if err != nil {
		rec.Status = StatusFailed
		rec.ErrorCode = MapError(err).Code
		log.Error("conversion failed",
			"schema", rec.Schema,
			"code", rec.ErrorCode,
			"error", err,
		)
	} else {
		log.Info("conversion complete",
			"schema", rec.Schema,
			"rows", rec.Total,
			"retained", rec.Retained,
			"rejected", rec.Rejected,
			"output", res.OutputPath,
			"duration", res.Duration,
		)
	}

	if s.recorder == nil {
		return
	}
	// The run's own context may already be cancelled or expired.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if rerr := s.recorder.RecordConversion(recCtx, rec); rerr != nil {
		log.Warn("failed to record conversion", "error", rerr)
	}
}
