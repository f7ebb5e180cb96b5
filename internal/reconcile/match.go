package reconcile

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"
)

// MaxCombination is the largest number of fills one order may combine.
const MaxCombination = 20

// Tolerance is the allowed distance between an order amount and the value of
// its fills: Abs + Rel*|amount|.
type Tolerance struct {
	Abs decimal.Decimal
	Rel decimal.Decimal
}

// DefaultTolerance is 0.01 absolute plus 0.1% of the order amount.
var DefaultTolerance = Tolerance{
	Abs: decimal.RequireFromString("0.01"),
	Rel: decimal.RequireFromString("0.001"),
}

// Bound returns the tolerance for a given target amount.
func (t Tolerance) Bound(target decimal.Decimal) decimal.Decimal {
	return t.Abs.Add(t.Rel.Mul(target.Abs()))
}

// Within reports whether value is close enough to target.
func (t Tolerance) Within(value, target decimal.Decimal) bool {
	return value.Sub(target).Abs().LessThanOrEqual(t.Bound(target))
}

// checkEvery is how many search nodes run between context checks.
const checkEvery = 1 << 12

// Match picks the candidate values that add up to target.
//
// A single candidate within tolerance wins outright; two or more such
// candidates fail with ErrAmbiguousMatch. Otherwise subsets of size 2 up to
// maxSize are tried in lexicographic index order and the first one whose sum
// is within tolerance is returned. Values must be non-negative. The returned
// indices are ascending. The search stops with ctx's error once ctx is done.
func Match(ctx context.Context, target decimal.Decimal, values []decimal.Decimal, tol Tolerance, maxSize int) ([]int, error) {
	single := -1
	for i, v := range values {
		if !tol.Within(v, target) {
			continue
		}
		if single >= 0 {
			return nil, ErrAmbiguousMatch
		}
		single = i
	}
	if single >= 0 {
		return []int{single}, nil
	}

	maxSize = min(maxSize, len(values))
	if maxSize < 2 {
		return nil, ErrUnreconcilableOrder
	}
	s := &search{
		ctx:    ctx,
		values: values,
		target: target,
		lower:  target.Sub(tol.Bound(target)),
		upper:  target.Add(tol.Bound(target)),
		tol:    tol,
		bounds: newSuffixBounds(values, maxSize),
	}
	for k := 2; k <= maxSize; k++ {
		picked, err := s.first(k)
		if err != nil {
			return nil, err
		}
		if picked != nil {
			return picked, nil
		}
	}
	return nil, ErrUnreconcilableOrder
}

// suffixBounds holds, for every start index i and count n, the sums of the
// n smallest and the n largest values in values[i:].
type suffixBounds struct {
	lo, hi [][]decimal.Decimal
}

func newSuffixBounds(values []decimal.Decimal, maxN int) suffixBounds {
	b := suffixBounds{
		lo: make([][]decimal.Decimal, len(values)+1),
		hi: make([][]decimal.Decimal, len(values)+1),
	}
	var small, large []decimal.Decimal
	b.lo[len(values)] = prefixSums(nil)
	b.hi[len(values)] = prefixSums(nil)
	for i := len(values) - 1; i >= 0; i-- {
		small = insertCapped(small, values[i], maxN, decimal.Decimal.LessThan)
		large = insertCapped(large, values[i], maxN, decimal.Decimal.GreaterThan)
		b.lo[i] = prefixSums(small)
		b.hi[i] = prefixSums(large)
	}
	return b
}

// insertCapped inserts v into s, kept ordered by before, and drops entries
// past limit.
func insertCapped(s []decimal.Decimal, v decimal.Decimal, limit int, before func(a, b decimal.Decimal) bool) []decimal.Decimal {
	pos := len(s)
	for j, x := range s {
		if before(v, x) {
			pos = j
			break
		}
	}
	if pos >= limit {
		return s
	}
	s = slices.Insert(s, pos, v)
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}

func prefixSums(s []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(s)+1)
	out[0] = decimal.Zero
	for i, v := range s {
		out[i+1] = out[i].Add(v)
	}
	return out
}

type search struct {
	ctx          context.Context
	values       []decimal.Decimal
	target       decimal.Decimal
	lower, upper decimal.Decimal
	tol          Tolerance
	bounds       suffixBounds
	nodes        int
	err          error
}

// first walks k-combinations in lexicographic order. A branch is cut when
// even the smallest or the largest possible completion misses the window
// [lower, upper]; such a branch holds no match, so the first hit is the
// same as without pruning.
func (s *search) first(k int) ([]int, error) {
	picked := make([]int, 0, k)

	var walk func(start int, sum decimal.Decimal) bool
	walk = func(start int, sum decimal.Decimal) bool {
		if len(picked) == k {
			return s.tol.Within(sum, s.target)
		}
		s.nodes++
		if s.nodes%checkEvery == 0 {
			if err := s.ctx.Err(); err != nil {
				s.err = err
				return true
			}
		}
		need := k - len(picked)
		if sum.Add(s.bounds.lo[start][need]).GreaterThan(s.upper) ||
			sum.Add(s.bounds.hi[start][need]).LessThan(s.lower) {
			return false
		}
		for i := start; i <= len(s.values)-need; i++ {
			next := sum.Add(s.values[i])
			if next.GreaterThan(s.upper) {
				continue
			}
			picked = append(picked, i)
			if walk(i+1, next) {
				return true
			}
			picked = picked[:len(picked)-1]
		}
		return false
	}

	if !walk(0, decimal.Zero) {
		return nil, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return picked, nil
}
