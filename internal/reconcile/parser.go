package reconcile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	seqRegex  = regexp.MustCompile(` #(\d+)`)
	fillRegex = regexp.MustCompile(`^(Bought|Sold) ([\d.]+) ([A-Z0-9]+) at ([\d.]+) ([A-Z0-9]+)`)
)

// feeType is the Type value CEX.io puts on commission rows.
const feeType = "costsNothing"

// CEXParser understands the comment wording of CEX.io exports.
type CEXParser struct{}

var _ CommentParser = CEXParser{}

func (CEXParser) Classify(e Entry) Kind {
	c := strings.TrimSpace(e.Comment)
	switch {
	case e.Type == feeType, strings.HasPrefix(c, "Fee"):
		return KindFee
	case strings.HasPrefix(c, "Buy Order"):
		return KindBuyOrder
	case strings.HasPrefix(c, "Sell Order"):
		return KindSellOrder
	case strings.HasPrefix(c, "Bought "):
		return KindBuyFill
	case strings.HasPrefix(c, "Sold "):
		return KindSellFill
	default:
		return KindUnknown
	}
}

func (CEXParser) OrderSeq(comment string) (string, bool) {
	m := seqRegex.FindStringSubmatch(comment)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (CEXParser) Fill(comment string) (Fill, error) {
	m := fillRegex.FindStringSubmatch(strings.TrimSpace(comment))
	if m == nil {
		return Fill{}, fmt.Errorf("unrecognized fill comment %q", comment)
	}
	amount, err := decimal.NewFromString(m[2])
	if err != nil {
		return Fill{}, fmt.Errorf("fill amount %q: %w", m[2], err)
	}
	price, err := decimal.NewFromString(m[4])
	if err != nil {
		return Fill{}, fmt.Errorf("fill price %q: %w", m[4], err)
	}
	return Fill{
		Verb:     m[1],
		Amount:   amount,
		Symbol:   m[3],
		Price:    price,
		Currency: m[5],
	}, nil
}
