package exchanges

import (
	"context"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

func init() {
	registerPoloniexTrades()
}

func registerPoloniexTrades() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "trade0",
			Exchange: "Poloniex",
			Label:    "Trade history",
		},
		Signature: core.Signature{
			"Date", "Market", "Category", "Type", "Price", "Amount", "Total", "Fee", "Order Number",
			"Base Total Less Fee", "Quote Total Less Fee",
		},
		Convert: func(ctx context.Context, raw *table.Table, _ core.Env) (*table.Table, error) {
			return mapRows(ctx, raw, func(c *cells) table.Unified {
				symbol, currency := c.pair("Market", "/", true)
				volume := c.dec("Amount")
				return table.Unified{
					Date:        c.date("Date"),
					Action:      c.upper("Type"),
					Symbol:      symbol,
					Volume:      volume,
					Currency:    currency,
					Account:     "Poloniex",
					Total:       c.num("Total"),
					Price:       c.num("Price"),
					Fee:         c.percentOf("Fee", volume),
					FeeCurrency: symbol,
				}
			})
		},
	})
}
