package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Policy configures Resilient.
type Policy struct {
	Timeout           time.Duration // per call; 0 disables
	MaxRetries        int           // retries after the first attempt
	Backoff           time.Duration // first retry delay, doubled per retry
	MaxBackoff        time.Duration // 0 means no cap
	RequestsPerSecond float64       // 0 disables throttling
}

// Resilient wraps a Lookup with a per-call timeout, bounded retries with
// exponential backoff and a token-bucket throttle. Cancellation is checked
// before every outbound call. ErrNoData is final and never retried.
type Resilient struct {
	inner   Lookup
	policy  Policy
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Lookup = (*Resilient)(nil)

// NewResilient wraps inner according to p.
func NewResilient(inner Lookup, p Policy, logger *slog.Logger) *Resilient {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resilient{inner: inner, policy: p, logger: logger}
	if p.RequestsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(p.RequestsPerSecond), 1)
	}
	return r
}

func (r *Resilient) USDPrice(ctx context.Context, asset string, at time.Time) (decimal.Decimal, error) {
	delay := r.policy.Backoff
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, err
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return decimal.Zero, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		price, err := r.call(ctx, asset, at)
		if err == nil {
			return price, nil
		}
		if errors.Is(err, ErrNoData) || attempt >= r.policy.MaxRetries || ctx.Err() != nil {
			return decimal.Zero, err
		}

		r.logger.Warn("rate lookup failed, retrying",
			"asset", asset,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return decimal.Zero, ctx.Err()
			case <-timer.C:
			}
		}
		delay *= 2
		if r.policy.MaxBackoff > 0 && delay > r.policy.MaxBackoff {
			delay = r.policy.MaxBackoff
		}
	}
}

func (r *Resilient) call(ctx context.Context, asset string, at time.Time) (decimal.Decimal, error) {
	if r.policy.Timeout <= 0 {
		return r.inner.USDPrice(ctx, asset, at)
	}
	callCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()
	return r.inner.USDPrice(callCtx, asset, at)
}
