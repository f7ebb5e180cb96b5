package exchanges

import (
	"context"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

func init() {
	registerBit2CReport()
	registerBit2CAccount()
}

func registerBit2CReport() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "bit2c0",
			Exchange: "Bit2C",
			Label:    "Financial report (2016)",
		},
		Signature: core.Signature{
			"Date", "Action", "firstCoin", "Currency", "Volume", "Price", "Fee", "FeeCurrency", "Source",
		},
		Convert: func(ctx context.Context, raw *table.Table, _ core.Env) (*table.Table, error) {
			return mapRows(ctx, raw, func(c *cells) table.Unified {
				account := c.str("Source")
				if account == "" {
					account = "Bit2C"
				}
				return table.Unified{
					Date:        c.date("Date"),
					Action:      c.upper("Action"),
					Symbol:      c.str("firstCoin"),
					Volume:      c.dec("Volume"),
					Currency:    c.str("Currency"),
					Account:     account,
					Price:       c.num("Price"),
					Fee:         c.num("Fee"),
					FeeCurrency: c.str("FeeCurrency"),
				}
			})
		},
	})
}

// bit2c1 amounts are signed from the account's point of view; the side is
// carried by accountAction.
func registerBit2CAccount() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "bit2c1",
			Exchange: "Bit2C",
			Label:    "Financial report (2018)",
		},
		Signature: core.Signature{
			"id", "created", "accountAction", "firstCoin", "secondCoin", "firstAmount",
			"secondAmount", "price", "feeAmount", "fee", "ref",
		},
		Convert: func(ctx context.Context, raw *table.Table, _ core.Env) (*table.Table, error) {
			return mapRows(ctx, raw, func(c *cells) table.Unified {
				total := table.Empty
				if c.str("secondAmount") != "" {
					total = table.Num(c.dec("secondAmount").Abs())
				}
				return table.Unified{
					Date:     c.date("created"),
					Action:   c.upper("accountAction"),
					Symbol:   c.str("firstCoin"),
					Volume:   c.dec("firstAmount").Abs(),
					Currency: c.str("secondCoin"),
					Account:  "Bit2C",
					Total:    total,
					Price:    c.num("price"),
					Fee:      c.num("feeAmount"),
				}
			})
		},
	})
}
