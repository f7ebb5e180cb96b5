package exchanges

import (
	"context"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

func init() {
	registerBitfinexTrades()
}

// Bitfinex has no side column: positive amounts are buys, negative sells.
func registerBitfinexTrades() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "bitfinex0",
			Exchange: "Bitfinex",
			Label:    "Trades",
		},
		Signature: core.Signature{
			"#", "PAIR", "AMOUNT", "PRICE", "FEE", "FEE CURRENCY", "DATE", "ORDER ID",
		},
		Convert: func(ctx context.Context, raw *table.Table, _ core.Env) (*table.Table, error) {
			return mapRows(ctx, raw, func(c *cells) table.Unified {
				amount := c.dec("AMOUNT")
				symbol, currency := c.pair("PAIR", "/", true)
				return table.Unified{
					Date:        c.date("DATE"),
					Action:      sideOf(amount),
					Symbol:      symbol,
					Volume:      amount.Abs(),
					Currency:    currency,
					Account:     "Bitfinex",
					Price:       c.num("PRICE"),
					Fee:         c.num("FEE"),
					FeeCurrency: c.str("FEE CURRENCY"),
				}
			})
		},
	})
}
