package exchanges

import (
	"context"
	"strings"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/table"
)

func init() {
	registerKrakenLedgers()
}

// krakenAsset turns ledger asset codes into common tickers: "XXBT" -> "BTC",
// "ZUSD" -> "USD". Newer four-letter codes without the X/Z class prefix are
// kept.
func krakenAsset(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) == 4 && (code[0] == 'X' || code[0] == 'Z') {
		code = code[1:]
	}
	if code == "XBT" {
		return "BTC"
	}
	return code
}

func registerKrakenLedgers() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "ledgers0",
			Exchange: "Kraken",
			Label:    "Ledgers",
		},
		Signature: core.Signature{
			"txid", "refid", "time", "type", "aclass", "asset", "amount", "fee", "balance",
		},
		Convert: convertKrakenLedgers,
	})
}

// convertKrakenLedgers merges the two ledger legs of each trade. A trade
// leg pair shares a refid; the first leg is the quote side.
//
// Groups that are not exactly two "trade" legs (deposits, withdrawals,
// multi-leg settlements) produce no row.
func convertKrakenLedgers(ctx context.Context, raw *table.Table, env core.Env) (*table.Table, error) {
	var order []string
	groups := make(map[string][]int)
	for i := 0; i < raw.Len(); i++ {
		ref := strings.TrimSpace(raw.Get(i, "refid").String())
		if _, seen := groups[ref]; !seen {
			order = append(order, ref)
		}
		groups[ref] = append(groups[ref], i)
	}

	out := table.NewUnified()
	for _, ref := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		legs := groups[ref]
		if !isTradePair(raw, legs) {
			loggerOf(env).Debug("skipping ledger group",
				"refid", ref,
				"legs", len(legs),
				"first_row", legs[0]+1,
			)
			continue
		}

		quote := &cells{raw: raw, i: legs[0]}
		base := &cells{raw: raw, i: legs[1]}

		quoteAmount := quote.dec("amount")
		baseAmount := base.dec("amount")
		u := table.Unified{
			Date:     quote.date("time"),
			Action:   table.ActionBuy,
			Symbol:   krakenAsset(base.str("asset")),
			Volume:   baseAmount.Abs(),
			Currency: krakenAsset(quote.str("asset")),
			Account:  "Kraken",
		}
		if quoteAmount.IsNegative() {
			u.Action = table.ActionSell
		}
		if !baseAmount.IsZero() {
			u.Price = table.Num(quoteAmount.Abs().Div(baseAmount.Abs()))
		}
		for _, leg := range []*cells{quote, base} {
			if fee := leg.decOrZero("fee"); !fee.IsZero() {
				u.Fee = table.Num(fee)
				u.FeeCurrency = krakenAsset(leg.str("asset"))
				break
			}
		}

		if quote.err != nil {
			return nil, quote.err
		}
		if base.err != nil {
			return nil, base.err
		}
		out.MustAppend(u.Row())
	}
	return out, nil
}

func isTradePair(raw *table.Table, legs []int) bool {
	if len(legs) != 2 {
		return false
	}
	for _, i := range legs {
		if strings.TrimSpace(raw.Get(i, "type").String()) != "trade" {
			return false
		}
	}
	return true
}
