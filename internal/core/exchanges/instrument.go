package exchanges

import (
	"context"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

func init() {
	registerInstrumentTrades()
}

// trades0 reports maker rebates separately from fees; the unified Fee is
// their sum.
func registerInstrumentTrades() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "trades0",
			Exchange: "Instrument trades",
			Label:    "Trades",
		},
		Signature: core.Signature{
			"Date (UTC)", "Instrument", "Trade ID", "Order ID", "Side", "Quantity", "Price", "Volume",
			"Fee", "Rebate", "Total",
		},
		Convert: func(ctx context.Context, raw *table.Table, _ core.Env) (*table.Table, error) {
			return mapRows(ctx, raw, func(c *cells) table.Unified {
				symbol, currency := c.pair("Instrument", "/", true)
				return table.Unified{
					Date:        c.date("Date (UTC)"),
					Action:      c.upper("Side"),
					Symbol:      symbol,
					Volume:      c.dec("Quantity"),
					Currency:    currency,
					Total:       c.num("Total"),
					Price:       c.num("Price"),
					Fee:         table.Num(c.decOrZero("Fee").Add(c.decOrZero("Rebate"))),
					FeeCurrency: currency,
				}
			})
		},
	})
}
