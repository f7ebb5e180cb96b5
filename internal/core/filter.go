package core

import (
	"github.com/JonMunkholm/coinconvert/internal/table"
)

// Rejection groups the rows dropped for one Action label.
type Rejection struct {
	Label string
	Count int
	Rows  []int // 1-based positions in the filtered table
}

// Filtered is the outcome of FilterRows.
type Filtered struct {
	Retained *table.Table
	Rejected []Rejection // in order of first appearance; nil when every row passed
}

// RejectedCount returns the total number of dropped rows.
func (f Filtered) RejectedCount() int {
	n := 0
	for _, r := range f.Rejected {
		n += r.Count
	}
	return n
}

// FilterRows keeps rows whose Action is BUY or SELL. When every row passes
// the input table itself is returned. t is never modified.
func FilterRows(t *table.Table) Filtered {
	var rejected []Rejection
	pos := make(map[string]int)

	for i, r := range t.Rows() {
		label := r[table.ColAction].String()
		if isTradeAction(label) {
			continue
		}
		j, ok := pos[label]
		if !ok {
			j = len(rejected)
			pos[label] = j
			rejected = append(rejected, Rejection{Label: label})
		}
		rejected[j].Count++
		rejected[j].Rows = append(rejected[j].Rows, i+1)
	}

	if rejected == nil {
		return Filtered{Retained: t}
	}

	retained := t.Filter(func(_ int, r table.Row) bool {
		return isTradeAction(r[table.ColAction].String())
	})
	return Filtered{Retained: retained, Rejected: rejected}
}

func isTradeAction(a string) bool {
	return a == table.ActionBuy || a == table.ActionSell
}
