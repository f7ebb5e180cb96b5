package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/coinconvert/internal/rates"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

var (
	// ErrUnknownSchema means no registered signature matches the header.
	ErrUnknownSchema = errors.New("unknown table format")

	// ErrNotSupported means the header is recognized but has no converter.
	ErrNotSupported = errors.New("table format not supported")

	// ErrSchemaViolation means a converter produced a table without every
	// mandatory column. It always indicates a converter bug.
	ErrSchemaViolation = errors.New("converted table is missing mandatory columns")

	// ErrWrite means the converted file could not be saved.
	ErrWrite = errors.New("unable to write output file")
)

// Env carries what a converter may use besides the raw table.
type Env struct {
	Rates  rates.Lookup
	Logger *slog.Logger
}

// ConvertFunc turns an exchange table into a unified table. It must not
// modify raw.
type ConvertFunc func(ctx context.Context, raw *table.Table, env Env) (*table.Table, error)

// Signature is the ordered header of one export format. Order, case and
// whitespace are significant.
type Signature []string

// signatureSep joins signature columns. It cannot appear in a header cell
// written by a spreadsheet tool.
const signatureSep = "\x1f"

// Key canonicalizes the signature for map lookup.
func (s Signature) Key() string {
	return strings.Join(s, signatureSep)
}

// SchemaInfo describes a registered export format.
type SchemaInfo struct {
	Key      string // "binance0"
	Exchange string // "Binance"
	Label    string // "Trade history"
}

// SchemaDefinition binds a signature to its converter. A nil Convert marks a
// format that is recognized but not supported.
type SchemaDefinition struct {
	Info      SchemaInfo
	Signature Signature
	Convert   ConvertFunc
}

// Supported reports whether the schema has a converter.
func (d SchemaDefinition) Supported() bool {
	return d.Convert != nil
}

// Conversion is the in-memory result of converting one table.
type Conversion struct {
	Schema   SchemaInfo
	Total    int // rows produced by the converter
	Filtered Filtered
}

// Status of a recorded run.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Record is one conversion run as stored by a Recorder.
type Record struct {
	ID        uuid.UUID
	File      string
	Schema    string
	Total     int
	Retained  int
	Rejected  int
	Status    string
	ErrorCode string
	Source    string
	ClientIP  string
	Duration  time.Duration
	CreatedAt time.Time
}

// Recorder persists conversion runs. Failures are logged, never fatal.
type Recorder interface {
	RecordConversion(ctx context.Context, rec Record) error
}

// Recorders fans a record out to several recorders. Every recorder is
// called; their errors are joined.
type Recorders []Recorder

func (rs Recorders) RecordConversion(ctx context.Context, rec Record) error {
	var errs []error
	for _, r := range rs {
		if err := r.RecordConversion(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
