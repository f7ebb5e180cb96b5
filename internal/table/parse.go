package table

// parse.go turns the cell text found in exchange exports into decimals and
// timestamps.
//
// Exports disagree on almost everything:
//   - Dates come ISO, US month-first, dotted EU, with and without seconds
//   - Some carry an explicit offset, most are implicitly UTC
//   - Numbers may carry currency symbols, thousands separators, or the
//     accounting "(1.23)" negative form
//
// ParseTime assumes UTC unless the text carries an offset.

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidValue marks a cell that could not be interpreted.
var ErrInvalidValue = errors.New("invalid value")

// numericRegex validates a number after cleanup. Scientific notation is
// accepted since spreadsheet exports fall back to it for tiny amounts.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Layouts that carry their own zone.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-07",
}

// Layouts interpreted as UTC. Month-first comes before day-first so that
// ambiguous dates read the way spreadsheet tools read them.
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"1/2/06 15:04:05",
	"1/2/06 15:04",
	"1/2/06",
	"01-02-2006 15:04:05",
	"02-01-2006 15:04:05",
	"01-02-06 15:04:05",
	"02-01-06 15:04:05",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006 3:04:05 PM",
	"Jan 2, 2006",
	"2 Jan 2006 15:04:05",
	"2 Jan 2006",
}

// ParseTime parses a date/time cell. Text without an offset is UTC. The
// result is always returned in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidValue
	}
	if trimmed, ok := strings.CutSuffix(s, " UTC"); ok {
		s = trimmed
	} else if trimmed, ok := strings.CutSuffix(s, "(UTC)"); ok {
		s = strings.TrimSpace(trimmed)
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidValue
}

// ParseDecimal parses a numeric cell. Currency symbols, thousands
// separators and accounting negatives are accepted.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidValue
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if !numericRegex.MatchString(s) {
		return decimal.Zero, ErrInvalidValue
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidValue
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParsePercent parses "0.25%" style cells into a fraction (0.0025). The
// second result is false when the cell has no percent marker, in which case
// the plain number is returned unchanged.
func ParsePercent(s string) (decimal.Decimal, bool, error) {
	s = strings.TrimSpace(s)
	trimmed, isPct := strings.CutSuffix(s, "%")
	d, err := ParseDecimal(trimmed)
	if err != nil {
		return decimal.Zero, false, err
	}
	if !isPct {
		return d, false, nil
	}
	return d.Div(decimal.NewFromInt(100)), true, nil
}
