// Package rates provides historical USD prices for converters that need to
// derive a trade price from two independent assets.
//
// The Lookup capability is injected; FileSource is the bundled
// implementation, and Cached and Resilient wrap any Lookup.
package rates

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency prices are quoted in. Its own price is always 1.
const BaseCurrency = "USD"

var (
	// ErrNoData means the source has no observation for the asset that day.
	ErrNoData = errors.New("no rate observation")

	// ErrDataSource marks a conversion that failed because of the rate source.
	ErrDataSource = errors.New("rate data source error")
)

// Lookup returns the USD unit price of an asset observed at or after at, on
// the same UTC day.
type Lookup interface {
	USDPrice(ctx context.Context, asset string, at time.Time) (decimal.Decimal, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, asset string, at time.Time) (decimal.Decimal, error)

func (f LookupFunc) USDPrice(ctx context.Context, asset string, at time.Time) (decimal.Decimal, error) {
	return f(ctx, asset, at)
}

// Unavailable is a Lookup that always fails. It stands in when no rate
// source is configured.
var Unavailable = LookupFunc(func(_ context.Context, asset string, at time.Time) (decimal.Decimal, error) {
	if asset == BaseCurrency {
		return decimal.NewFromInt(1), nil
	}
	return decimal.Zero, errors.New("no rate source configured")
})
