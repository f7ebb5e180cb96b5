package reconcile

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrIntegrity reports an export whose rows do not fit the expected
	// order/fill/fee structure.
	ErrIntegrity = errors.New("cex export integrity check failed")

	// ErrAmbiguousMatch reports an order matched by more than one single fill.
	ErrAmbiguousMatch = errors.New("order matched by more than one fill")

	// ErrUnreconcilableOrder reports an order no fill combination adds up to.
	ErrUnreconcilableOrder = errors.New("no fill combination matches order")
)

// OrderError attaches the failing order to a reconciliation error.
type OrderError struct {
	Seq    string
	Side   string
	Amount decimal.Decimal
	Err    error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s order #%s (amount %s): %v", e.Side, e.Seq, e.Amount.String(), e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}
