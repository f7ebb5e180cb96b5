package exchanges

import (
	"context"
	"strings"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

func init() {
	registerBinanceTrades()
}

// binanceQuotes are the quote assets a Binance market symbol can end with,
// tried in order. A quote that is a suffix of another (USD of BUSD, TUSD and
// FDUSD) must come after it, so "BTCBUSD" does not split as "BTCB" + "USD".
var binanceQuotes = []string{
	"FDUSD", "USDT", "BUSD", "USDC", "TUSD", "BIDR", "BVND", "IDRT",
	"USDS", "PAX", "DAI", "TRY", "EUR", "GBP", "AUD", "BRL", "RUB", "UAH", "NGN",
	"BTC", "ETH", "BNB", "XRP", "TRX", "USD",
}

// splitBinanceMarket splits "ETHBTC" into ("ETH", "BTC").
func splitBinanceMarket(market string) (symbol, currency string, ok bool) {
	market = strings.ToUpper(strings.TrimSpace(market))
	for _, q := range binanceQuotes {
		if base, found := strings.CutSuffix(market, q); found && base != "" {
			return base, q, true
		}
	}
	return "", "", false
}

func registerBinanceTrades() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "binance0",
			Exchange: "Binance",
			Label:    "Trade history",
		},
		Signature: core.Signature{
			"Date(UTC)", "Market", "Type", "Price", "Amount", "Total", "Fee", "Fee Coin",
		},
		Convert: func(ctx context.Context, raw *table.Table, _ core.Env) (*table.Table, error) {
			return mapRows(ctx, raw, func(c *cells) table.Unified {
				feeCoin := c.str("Fee Coin")
				symbol, currency, ok := splitBinanceMarket(c.str("Market"))
				if !ok {
					symbol, currency = feeCoin, feeCoin
				}
				return table.Unified{
					Date:        c.date("Date(UTC)"),
					Action:      c.upper("Type"),
					Symbol:      symbol,
					Volume:      c.dec("Amount"),
					Currency:    currency,
					Account:     "Binance",
					Total:       c.num("Total"),
					Price:       c.num("Price"),
					Fee:         c.num("Fee"),
					FeeCurrency: feeCoin,
				}
			})
		},
	})
}
