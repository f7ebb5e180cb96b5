package exchanges

import (
	"context"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

func init() {
	registerLiquiTrades()
}

// The leading space in " Change Quote" is part of the exported header.
func registerLiquiTrades() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "lqui0",
			Exchange: "Liqui",
			Label:    "Trade history",
		},
		Signature: core.Signature{
			"Date", "Market", "Type", "Price", "Amount", "Total", "Fee", "OrderId", "TradeId",
			"Change Base", " Change Quote",
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
					Account:     "Liqui",
					Total:       c.num("Total"),
					Price:       c.num("Price"),
					Fee:         c.percentOf("Fee", volume),
					FeeCurrency: symbol,
				}
			})
		},
	})
}
