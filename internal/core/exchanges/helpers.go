package exchanges

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

// cells reads typed values from one raw row. The first failure is kept and
// every later read returns a zero value, so a converter can read a whole row
// and check err once.
type cells struct {
	raw *table.Table
	i   int
	err error
}

func (c *cells) fail(col, why string) {
	if c.err == nil {
		c.err = fmt.Errorf("row %d, column %q: %w: %s", c.i+1, col, table.ErrInvalidValue, why)
	}
}

// str returns the trimmed cell text.
func (c *cells) str(col string) string {
	return strings.TrimSpace(c.raw.Get(c.i, col).String())
}

func (c *cells) upper(col string) string {
	return strings.ToUpper(c.str(col))
}

// date parses a required date cell.
func (c *cells) date(col string) time.Time {
	v := c.raw.Get(c.i, col)
	t, err := v.Timestamp()
	if err != nil {
		c.fail(col, fmt.Sprintf("%q is not a date", v.String()))
		return time.Time{}
	}
	return t
}

// dec parses a required number cell.
func (c *cells) dec(col string) decimal.Decimal {
	v := c.raw.Get(c.i, col)
	d, err := v.Decimal()
	if err != nil {
		c.fail(col, fmt.Sprintf("%q is not a number", v.String()))
		return decimal.Zero
	}
	return d
}

// decOrZero parses a number cell, reading blanks as zero.
func (c *cells) decOrZero(col string) decimal.Decimal {
	if c.str(col) == "" {
		return decimal.Zero
	}
	return c.dec(col)
}

// num returns an optional number cell as a Value; blanks stay empty.
func (c *cells) num(col string) table.Value {
	if c.str(col) == "" {
		return table.Empty
	}
	return table.Num(c.dec(col))
}

// percentOf reads a fee cell. "0.25%" becomes that share of base; a plain
// number is taken as the fee amount itself.
func (c *cells) percentOf(col string, base decimal.Decimal) table.Value {
	s := c.str(col)
	if s == "" {
		return table.Empty
	}
	d, isPct, err := table.ParsePercent(s)
	if err != nil {
		c.fail(col, fmt.Sprintf("%q is not a fee", s))
		return table.Empty
	}
	if isPct {
		return table.Num(base.Mul(d))
	}
	return table.Num(d)
}

// mapRows converts raw row by row into a unified table.
func mapRows(ctx context.Context, raw *table.Table, fn func(c *cells) table.Unified) (*table.Table, error) {
	out := table.NewUnified()
	for i := 0; i < raw.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := &cells{raw: raw, i: i}
		u := fn(c)
		if c.err != nil {
			return nil, c.err
		}
		out.MustAppend(u.Row())
	}
	return out, nil
}

// splitPair splits "BTC/USD" style pairs. baseFirst selects which side is
// the traded asset.
func splitPair(pair, sep string, baseFirst bool) (symbol, currency string, ok bool) {
	a, b, ok := strings.Cut(strings.TrimSpace(pair), sep)
	if !ok {
		return "", "", false
	}
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if baseFirst {
		return a, b, true
	}
	return b, a, true
}

// pair is splitPair on a cell, recording a failure for malformed pairs.
func (c *cells) pair(col, sep string, baseFirst bool) (symbol, currency string) {
	s := c.str(col)
	symbol, currency, ok := splitPair(s, sep, baseFirst)
	if !ok {
		c.fail(col, fmt.Sprintf("%q is not a %q separated pair", s, sep))
	}
	return symbol, currency
}

// sideOf maps a signed amount to BUY or SELL. Zero has no side and is left
// for the row filter to report.
func sideOf(d decimal.Decimal) string {
	switch d.Sign() {
	case 1:
		return table.ActionBuy
	case -1:
		return table.ActionSell
	default:
		return ""
	}
}

func loggerOf(env core.Env) *slog.Logger {
	if env.Logger == nil {
		return slog.Default()
	}
	return env.Logger
}
