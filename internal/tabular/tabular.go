// Package tabular reads exchange exports (CSV or XLSX) into tables and
// writes converted tables back out as CSV.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/coinconvert/internal/table"
)

var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("file has no header row")
	ErrFileTooLarge    = errors.New("file exceeds size limit")
)

// Format is an input file format.
type Format int

const (
	FormatCSV Format = iota + 1
	FormatXLSX
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// Options control reading.
type Options struct {
	// MaxBytes caps the input size; 0 means unlimited.
	MaxBytes int64
}

// DetectFormat picks the format from the file extension: anything containing
// "xls" is a spreadsheet, anything containing "csv" is CSV.
func DetectFormat(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case strings.Contains(ext, "xls"):
		return FormatXLSX, nil
	case strings.Contains(ext, "csv"):
		return FormatCSV, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFile, filepath.Base(name))
	}
}

// ReadFile opens path and reads it according to its extension.
func ReadFile(path string, opts Options) (*table.Table, error) {
	if _, err := DetectFormat(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()
	return Read(path, f, opts)
}

// Read parses r, using name only to pick the format.
func Read(name string, r io.Reader, opts Options) (*table.Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return ReadXLSX(r, opts)
	}
	return ReadCSV(r, opts)
}

// ReadCSV parses a CSV export. The first record is the header and is kept
// exactly as written.
func ReadCSV(r io.Reader, opts Options) (*table.Table, error) {
	cr := csv.NewReader(sourceReader(r, opts.MaxBytes))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return table.FromRecords(header, records), nil
}

// ReadXLSX parses the first sheet of a workbook.
func ReadXLSX(r io.Reader, opts Options) (*table.Table, error) {
	f, err := excelize.OpenReader(sourceLimit(r, opts.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return table.FromRecords(rows[0], rows[1:]), nil
}

// sourceLimit only enforces the size cap; workbooks are zip archives and
// must not pass through the text sanitizer.
func sourceLimit(r io.Reader, maxBytes int64) io.Reader {
	if maxBytes <= 0 {
		return r
	}
	return &limitedReader{r: r, remaining: maxBytes}
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes t with a header row.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteFile writes t to path as CSV, removing the partial file on failure.
func WriteFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// OutputPath returns the sibling CSV path for a converted input:
// "dir/Trades.xlsx" with suffix "_converted" becomes "dir/Trades_converted.csv".
func OutputPath(input, suffix string) string {
	dir, base := filepath.Split(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+suffix+".csv")
}
