package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"
)

// Engine reconciles CEX.io orders with their fills.
type Engine struct {
	Parser         CommentParser
	Tolerance      Tolerance
	MaxCombination int
	Logger         *slog.Logger
}

// NewEngine returns an Engine with the CEX.io parser and default tolerance.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Parser:         CEXParser{},
		Tolerance:      DefaultTolerance,
		MaxCombination: MaxCombination,
		Logger:         logger,
	}
}

type fee struct {
	amount   decimal.Decimal
	currency string
}

type candidate struct {
	entry Entry
	fill  Fill
	value decimal.Decimal
	used  bool
}

// Reconcile turns the export rows into one Trade per order, buy side first.
// Each fill is used by at most one order. State is local to the call, and a
// done ctx stops the fill search.
func (e *Engine) Reconcile(ctx context.Context, entries []Entry) ([]Trade, error) {
	groups := make(map[Kind][]Entry, 5)
	for _, en := range entries {
		k := e.Parser.Classify(en)
		groups[k] = append(groups[k], en)
	}

	classified := len(groups[KindBuyOrder]) + len(groups[KindSellOrder]) +
		len(groups[KindBuyFill]) + len(groups[KindSellFill]) + len(groups[KindFee])
	if classified != len(entries) {
		first := groups[KindUnknown][0]
		return nil, fmt.Errorf("%w: %d of %d rows unclassified, first at row %d (%q)",
			ErrIntegrity, len(entries)-classified, len(entries), first.Index, first.Comment)
	}

	fees, err := e.feeLookup(groups[KindFee])
	if err != nil {
		return nil, err
	}

	bought, err := e.reconcileSide(ctx, SideBuy, groups[KindBuyOrder], groups[KindBuyFill], fees)
	if err != nil {
		return nil, err
	}
	sold, err := e.reconcileSide(ctx, SideSell, groups[KindSellOrder], groups[KindSellFill], fees)
	if err != nil {
		return nil, err
	}
	return append(bought, sold...), nil
}

func (e *Engine) feeLookup(rows []Entry) (map[string]fee, error) {
	fees := make(map[string]fee, len(rows))
	for _, r := range rows {
		seq, ok := e.Parser.OrderSeq(r.Comment)
		if !ok {
			return nil, fmt.Errorf("%w: fee row %d has no order number (%q)", ErrIntegrity, r.Index, r.Comment)
		}
		f := fees[seq]
		f.amount = f.amount.Add(r.Amount.Abs())
		if f.currency == "" {
			f.currency = r.Symbol
		}
		fees[seq] = f
	}
	return fees, nil
}

func (e *Engine) reconcileSide(ctx context.Context, side string, orders, fills []Entry, fees map[string]fee) ([]Trade, error) {
	byTime := func(a, b Entry) int {
		if c := a.Time.Compare(b.Time); c != 0 {
			return c
		}
		return a.Index - b.Index
	}
	orders = slices.Clone(orders)
	slices.SortStableFunc(orders, byTime)
	fills = slices.Clone(fills)
	slices.SortStableFunc(fills, byTime)

	pool := make([]*candidate, 0, len(fills))
	for _, f := range fills {
		parsed, err := e.Parser.Fill(f.Comment)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrIntegrity, f.Index, err)
		}
		value := parsed.Amount
		if f.Symbol != QuoteCurrency {
			value = parsed.Amount.Mul(parsed.Price)
		}
		pool = append(pool, &candidate{entry: f, fill: parsed, value: value})
	}

	trades := make([]Trade, 0, len(orders))
	for _, order := range orders {
		seq, ok := e.Parser.OrderSeq(order.Comment)
		if !ok {
			return nil, fmt.Errorf("%w: order row %d has no order number (%q)", ErrIntegrity, order.Index, order.Comment)
		}
		amount := order.Amount.Abs()

		var open []*candidate
		for _, c := range pool {
			if !c.used && !c.entry.Time.Before(order.Time) {
				open = append(open, c)
			}
		}
		values := make([]decimal.Decimal, len(open))
		for i, c := range open {
			values[i] = c.value
		}

		picked, err := Match(ctx, amount, values, e.Tolerance, e.MaxCombination)
		if err != nil {
			return nil, &OrderError{Seq: seq, Side: side, Amount: amount, Err: err}
		}

		matched := make([]*candidate, len(picked))
		for i, p := range picked {
			matched[i] = open[p]
			matched[i].used = true
		}
		t := e.buildTrade(side, seq, order, amount, matched, fees)
		e.Logger.Debug("order reconciled",
			"side", side,
			"seq", seq,
			"amount", amount.String(),
			"fills", t.Fills,
		)
		trades = append(trades, t)
	}
	return trades, nil
}

func (e *Engine) buildTrade(side, seq string, order Entry, amount decimal.Decimal, matched []*candidate, fees map[string]fee) Trade {
	volume := decimal.Zero
	if order.Symbol != QuoteCurrency {
		volume = amount
	}
	priceSum := decimal.Zero
	indices := make([]int, len(matched))
	for i, c := range matched {
		if c.entry.Symbol != QuoteCurrency {
			volume = volume.Add(c.entry.Amount)
		}
		priceSum = priceSum.Add(c.fill.Price)
		indices[i] = c.entry.Index
	}

	f := fees[seq]
	return Trade{
		Seq:         seq,
		Time:        order.Time,
		Side:        side,
		Symbol:      matched[0].fill.Symbol,
		Currency:    matched[0].fill.Currency,
		Volume:      volume.Abs(),
		Price:       priceSum.Div(decimal.NewFromInt(int64(len(matched)))),
		Fee:         f.amount,
		FeeCurrency: f.currency,
		Fills:       indices,
	}
}
