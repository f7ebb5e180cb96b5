package table

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the unified Date serialization.
const DateLayout = "2006-01-02 15:04:05 -0700"

// Kind identifies what a Value holds.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindString
	KindNumber
	KindTime
)

// Value is one table cell. The zero Value is empty.
type Value struct {
	kind Kind
	str  string
	num  decimal.Decimal
	ts   time.Time
}

// Empty is the empty cell.
var Empty = Value{}

// Str wraps a string. An empty string yields an empty Value.
func Str(s string) Value {
	if s == "" {
		return Empty
	}
	return Value{kind: KindString, str: s}
}

// Num wraps a decimal number.
func Num(d decimal.Decimal) Value {
	return Value{kind: KindNumber, num: d}
}

// Time wraps a timestamp, normalized to UTC.
func Time(t time.Time) Value {
	return Value{kind: KindTime, ts: t.UTC()}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsEmpty reports whether the cell holds nothing.
func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// Decimal returns the number held by v, parsing string cells.
func (v Value) Decimal() (decimal.Decimal, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindString:
		return ParseDecimal(v.str)
	default:
		return decimal.Zero, ErrInvalidValue
	}
}

// Timestamp returns the time held by v, parsing string cells.
func (v Value) Timestamp() (time.Time, error) {
	switch v.kind {
	case KindTime:
		return v.ts, nil
	case KindString:
		return ParseTime(v.str)
	default:
		return time.Time{}, ErrInvalidValue
	}
}

// String serializes the value: numbers in fixed-point notation, times in
// DateLayout, empty cells as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindTime:
		return v.ts.Format(DateLayout)
	default:
		return ""
	}
}

// Equal reports whether two values serialize identically and share a kind.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num.Equal(o.num)
	case KindTime:
		return v.ts.Equal(o.ts)
	default:
		return v.str == o.str
	}
}
