package exchanges

import (
	"context"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

func init() {
	registerMemberTrades()
}

// member0 is already close to the unified layout; only the casing of a few
// columns differs.
func registerMemberTrades() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "member0",
			Exchange: "Member",
			Label:    "Trades report",
		},
		Signature: core.Signature{
			"Symbol", "Currency", "Action", "Volume", "PRICE", "FEE", "FEECURRENCY", "DATE", "Source",
		},
		Convert: func(ctx context.Context, raw *table.Table, _ core.Env) (*table.Table, error) {
			return mapRows(ctx, raw, func(c *cells) table.Unified {
				return table.Unified{
					Date:        c.date("DATE"),
					Action:      c.upper("Action"),
					Symbol:      c.str("Symbol"),
					Volume:      c.dec("Volume"),
					Currency:    c.str("Currency"),
					Account:     c.str("Source"),
					Price:       c.num("PRICE"),
					Fee:         c.num("FEE"),
					FeeCurrency: c.str("FEECURRENCY"),
				}
			})
		},
	})
}
