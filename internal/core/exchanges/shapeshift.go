package exchanges

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/rates"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

func init() {
	registerShapeShiftSheet()
}

// ShapeShift sheet columns (a Hebrew spreadsheet template).
const (
	ssBoughtAmount   = "כמות רכישה"
	ssBoughtCurrency = "מטבע רכישה"
	ssSoldAmount     = "כמות מכירה"
	ssSoldCurrency   = "מטבע מכירה"
	ssFee            = "עמלה (אופציונלי)"
	ssFeeCurrency    = "מטבע עמלה (אופציונלי)"
	ssExchange       = "זירה"
	ssReference      = "אסמכתא (אופציונלי)"
	ssDate           = "תאריך"
)

func registerShapeShiftSheet() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "shapeshift0",
			Exchange: "ShapeShift",
			Label:    "Transactions sheet",
		},
		Signature: core.Signature{
			ssBoughtAmount, ssBoughtCurrency, ssSoldAmount, ssSoldCurrency,
			ssFee, ssFeeCurrency, ssExchange, ssReference, ssDate,
		},
		Convert: convertShapeShift,
	})
}

// convertShapeShift derives Price from two USD lookups at the row's time,
// since the sheet records no price.
func convertShapeShift(ctx context.Context, raw *table.Table, env core.Env) (*table.Table, error) {
	lookup := env.Rates
	if lookup == nil {
		lookup = rates.Unavailable
	}

	out := table.NewUnified()
	for i := 0; i < raw.Len(); i++ {
		c := &cells{raw: raw, i: i}
		bought := c.decOrZero(ssBoughtAmount)
		sold := c.decOrZero(ssSoldAmount)
		at := c.date(ssDate)

		u := table.Unified{
			Date:        at,
			Action:      table.ActionBuy,
			Symbol:      c.str(ssBoughtCurrency),
			Volume:      bought,
			Currency:    c.str(ssSoldCurrency),
			Account:     c.str(ssExchange),
			Fee:         c.num(ssFee),
			FeeCurrency: c.str(ssFeeCurrency),
		}
		if sold.IsPositive() {
			u.Action = table.ActionSell
		}
		if !bought.IsPositive() {
			u.Volume = sold
		}
		if u.Account == "" {
			u.Account = "ShapeShift"
		}
		if c.err != nil {
			return nil, c.err
		}

		price, err := crossPrice(ctx, lookup, u.Symbol, u.Currency, at)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		u.Price = table.Num(price)
		out.MustAppend(u.Row())
	}
	return out, nil
}

// crossPrice returns the price of symbol in currency through USD.
// Cancellation is checked before each lookup.
func crossPrice(ctx context.Context, lookup rates.Lookup, symbol, currency string, at time.Time) (decimal.Decimal, error) {
	usd := make([]decimal.Decimal, 2)
	for j, asset := range []string{symbol, currency} {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, err
		}
		p, err := lookup.USDPrice(ctx, asset, at)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s at %s: %w", rates.ErrDataSource, asset, at.Format(table.DateLayout), err)
		}
		usd[j] = p
	}
	if usd[1].IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s has a zero USD price at %s", rates.ErrDataSource, currency, at.Format(table.DateLayout))
	}
	return usd[0].Div(usd[1]), nil
}
