package exchanges

import (
	"context"
	"strings"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

func init() {
	registerBittrexOrders()
}

// bittrexSide turns "LIMIT_SELL" into "SELL".
func bittrexSide(orderType string) string {
	orderType = strings.ToUpper(strings.TrimSpace(orderType))
	if _, side, ok := strings.Cut(orderType, "_"); ok {
		return side
	}
	return orderType
}

// Bittrex markets are quote first: "BTC-LTC" trades LTC for BTC. Price is
// the order total and PricePerUnit the unit price.
func registerBittrexOrders() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "bittrex0",
			Exchange: "Bittrex",
			Label:    "Order history",
		},
		Signature: core.Signature{
			"Uuid", "Exchange", "TimeStamp", "OrderType", "Limit", "Quantity", "QuantityRemaining",
			"Commission", "Price", "PricePerUnit", "IsConditional", "Condition", "ConditionTarget",
			"ImmediateOrCancel", "Closed",
		},
		Convert: func(ctx context.Context, raw *table.Table, _ core.Env) (*table.Table, error) {
			return mapRows(ctx, raw, func(c *cells) table.Unified {
				symbol, currency := c.pair("Exchange", "-", false)
				return table.Unified{
					Date:        c.date("TimeStamp"),
					Action:      bittrexSide(c.str("OrderType")),
					Symbol:      symbol,
					Volume:      c.dec("Quantity"),
					Currency:    currency,
					Account:     "Bittrex",
					Total:       c.num("Price"),
					Price:       c.num("PricePerUnit"),
					Fee:         c.num("Commission"),
					FeeCurrency: currency,
				}
			})
		},
	})
}
