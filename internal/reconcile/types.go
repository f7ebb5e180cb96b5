// Package reconcile rebuilds trades from CEX.io balance exports.
//
// A CEX.io export has no row per trade. Instead each order appears once
// ("Buy Order #123") next to the fills it produced ("Bought 0.01 BTC at
// 9000.00 USD"), and the two are not linked. The Engine pairs every order
// with the set of fills whose combined value equals the order amount.
//
// The text format of comments is isolated behind CommentParser; the matching
// itself (Match) only sees numbers.
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies one export row.
type Kind int

const (
	KindUnknown Kind = iota
	KindBuyOrder
	KindSellOrder
	KindBuyFill
	KindSellFill
	KindFee
)

func (k Kind) String() string {
	switch k {
	case KindBuyOrder:
		return "buy order"
	case KindSellOrder:
		return "sell order"
	case KindBuyFill:
		return "buy fill"
	case KindSellFill:
		return "sell fill"
	case KindFee:
		return "fee"
	default:
		return "unknown"
	}
}

// QuoteCurrency is the currency CEX.io order amounts are valued in.
const QuoteCurrency = "USD"

// Sides of a reconciled trade.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Entry is one raw export row.
type Entry struct {
	Index   int // 1-based position in the export
	Time    time.Time
	Amount  decimal.Decimal
	Symbol  string
	Type    string
	Comment string
}

// Fill is the content of a fill comment.
type Fill struct {
	Verb     string // "Bought" or "Sold"
	Amount   decimal.Decimal
	Symbol   string
	Price    decimal.Decimal
	Currency string
}

// Trade is one reconciled order.
type Trade struct {
	Seq         string
	Time        time.Time
	Side        string
	Symbol      string
	Currency    string
	Volume      decimal.Decimal
	Price       decimal.Decimal
	Fee         decimal.Decimal
	FeeCurrency string
	Fills       []int // Entry.Index of every matched fill
}

// CommentParser extracts structure from export comments.
type CommentParser interface {
	// Classify assigns the entry to one of the five row groups.
	Classify(e Entry) Kind
	// OrderSeq returns the order sequence number referenced by a comment.
	OrderSeq(comment string) (string, bool)
	// Fill parses a fill comment.
	Fill(comment string) (Fill, error)
}
