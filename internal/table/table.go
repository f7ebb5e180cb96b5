// Package table holds the in-memory tabular model shared by readers,
// converters and writers: a Table is an ordered list of rows over a fixed
// column set, and every cell is a Value.
package table

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Unified output columns.
const (
	ColDate        = "Date"
	ColAction      = "Action"
	ColSymbol      = "Symbol"
	ColVolume      = "Volume"
	ColCurrency    = "Currency"
	ColAccount     = "Account"
	ColTotal       = "Total"
	ColPrice       = "Price"
	ColFee         = "Fee"
	ColFeeCurrency = "FeeCurrency"
)

// MandatoryColumns must be present in every converter's output.
var MandatoryColumns = []string{ColDate, ColAction, ColSymbol, ColVolume, ColCurrency}

// UnifiedColumns is the full output column set in serialization order.
var UnifiedColumns = []string{
	ColDate, ColAction, ColSymbol, ColVolume, ColCurrency,
	ColAccount, ColTotal, ColPrice, ColFee, ColFeeCurrency,
}

// Actions accepted by the row filter.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// Row maps a column name to its cell value.
type Row map[string]Value

// Table is an ordered sequence of rows sharing one column set.
type Table struct {
	columns []string
	known   map[string]struct{}
	rows    []Row
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	t := &Table{
		columns: slices.Clone(columns),
		known:   make(map[string]struct{}, len(columns)),
	}
	for _, c := range columns {
		t.known[c] = struct{}{}
	}
	return t
}

// NewUnified creates an empty table over UnifiedColumns.
func NewUnified() *Table {
	return New(UnifiedColumns...)
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// HasColumn reports whether col is part of the column set.
func (t *Table) HasColumn(col string) bool {
	_, ok := t.known[col]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the i-th row. The returned map must not be modified.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Rows returns the rows in order. The slice must not be modified.
func (t *Table) Rows() []Row {
	return t.rows
}

// Get returns the value at row i, column col.
func (t *Table) Get(i int, col string) Value {
	return t.rows[i][col]
}

// Append adds a row. Columns missing from r are stored as empty values;
// columns unknown to the table are rejected.
func (t *Table) Append(r Row) error {
	for col := range r {
		if !t.HasColumn(col) {
			return fmt.Errorf("append row %d: unknown column %q", len(t.rows)+1, col)
		}
	}
	stored := make(Row, len(t.columns))
	for _, col := range t.columns {
		stored[col] = r[col]
	}
	t.rows = append(t.rows, stored)
	return nil
}

// MustAppend is Append for rows built from the table's own column constants.
func (t *Table) MustAppend(r Row) {
	if err := t.Append(r); err != nil {
		panic(err)
	}
}

// Filter returns a new table with the same columns holding the rows for
// which keep returns true. The receiver is not modified.
func (t *Table) Filter(keep func(i int, r Row) bool) *Table {
	out := New(t.columns...)
	for i, r := range t.rows {
		if keep(i, r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// MissingColumns returns the entries of want that the table lacks.
func (t *Table) MissingColumns(want []string) []string {
	var missing []string
	for _, c := range want {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Records renders the table as string records, header first.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.Columns())
	for _, r := range t.rows {
		rec := make([]string, len(t.columns))
		for j, col := range t.columns {
			rec[j] = r[col].String()
		}
		out = append(out, rec)
	}
	return out
}

// FromRecords builds a table of string values from a header and data
// records. Short records are padded with empty values, extra cells dropped.
func FromRecords(header []string, records [][]string) *Table {
	t := New(header...)
	for _, rec := range records {
		r := make(Row, len(header))
		for j, col := range header {
			if j < len(rec) {
				r[col] = Str(rec[j])
			}
		}
		t.rows = append(t.rows, r)
	}
	return t
}

// Unified is a convenience for building one unified output row.
type Unified struct {
	Date        time.Time
	Action      string
	Symbol      string
	Volume      decimal.Decimal
	Currency    string
	Account     string
	Total       Value
	Price       Value
	Fee         Value
	FeeCurrency string
}

// Row converts u into a Row over UnifiedColumns.
func (u Unified) Row() Row {
	return Row{
		ColDate:        Time(u.Date),
		ColAction:      Str(u.Action),
		ColSymbol:      Str(u.Symbol),
		ColVolume:      Num(u.Volume),
		ColCurrency:    Str(u.Currency),
		ColAccount:     Str(u.Account),
		ColTotal:       u.Total,
		ColPrice:       u.Price,
		ColFee:         u.Fee,
		ColFeeCurrency: Str(u.FeeCurrency),
	}
}
