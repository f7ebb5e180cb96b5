package rates

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// Cached memoizes successful lookups for ttl.
type Cached struct {
	inner Lookup
	cache *cache.Cache
}

var _ Lookup = (*Cached)(nil)

// NewCached wraps inner with an in-memory cache.
func NewCached(inner Lookup, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func cacheKey(asset string, at time.Time) string {
	return strings.ToUpper(asset) + "|" + strconv.FormatInt(at.UTC().UnixNano(), 10)
}

func (c *Cached) USDPrice(ctx context.Context, asset string, at time.Time) (decimal.Decimal, error) {
	key := cacheKey(asset, at)
	if v, ok := c.cache.Get(key); ok {
		return v.(decimal.Decimal), nil
	}
	price, err := c.inner.USDPrice(ctx, asset, at)
	if err != nil {
		return decimal.Zero, err
	}
	c.cache.SetDefault(key, price)
	return price, nil
}

// Len returns the number of cached entries.
func (c *Cached) Len() int {
	return c.cache.ItemCount()
}
