package exchanges

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/reconcile"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

func init() {
	registerCEXTrades()
}

func registerCEXTrades() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "cex0",
			Exchange: "CEX.io",
			Label:    "Transaction history",
		},
		Signature: core.Signature{
			"DateUTC", "Amount", "Symbol", "Balance", "Type", "Pair", "FeeSymbol", "FeeAmount", "Comment",
		},
		Convert: convertCEX,
	})
}

// convertCEX rebuilds one row per order from the export's order, fill and
// fee rows.
func convertCEX(ctx context.Context, raw *table.Table, env core.Env) (*table.Table, error) {
	entries := make([]reconcile.Entry, 0, raw.Len())
	for i := 0; i < raw.Len(); i++ {
		c := &cells{raw: raw, i: i}
		e := reconcile.Entry{
			Index:   i + 1,
			Time:    c.date("DateUTC"),
			Amount:  c.dec("Amount"),
			Symbol:  c.str("Symbol"),
			Type:    c.str("Type"),
			Comment: c.str("Comment"),
		}
		if c.err != nil {
			return nil, c.err
		}
		entries = append(entries, e)
	}
	trades, err := reconcile.NewEngine(env.Logger).Reconcile(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	out := table.NewUnified()
	for _, t := range trades {
		out.MustAppend(table.Unified{
			Date:        t.Time,
			Action:      t.Side,
			Symbol:      t.Symbol,
			Volume:      t.Volume,
			Currency:    t.Currency,
			Account:     "CEX",
			Price:       table.Num(t.Price),
			Fee:         table.Num(t.Fee),
			FeeCurrency: t.FeeCurrency,
		}.Row())
	}
	return out, nil
}
