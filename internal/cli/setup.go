package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/coinconvert/internal/config"
	"github.com/JonMunkholm/coinconvert/internal/history"
	"github.com/JonMunkholm/coinconvert/internal/rates"
)

// NewRateLookup builds the price source from config: the rate file, retried
// and throttled, then cached. It returns nil when no file is configured.
func NewRateLookup(cfg config.RatesConfig, logger *slog.Logger) (rates.Lookup, error) {
	if cfg.File == "" {
		return nil, nil
	}
	src, err := rates.LoadFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("load rates file: %w", err)
	}
	resilient := rates.NewResilient(src, rates.Policy{
		Timeout:           cfg.Timeout,
		MaxRetries:        cfg.MaxRetries,
		Backoff:           cfg.Backoff,
		MaxBackoff:        cfg.MaxBackoff,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, logger)
	return rates.NewCached(resilient, cfg.CacheTTL), nil
}

// OpenHistory connects to the history database and makes sure the table
// exists. The returned close func releases the pool.
func OpenHistory(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*history.Store, func(), error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	store := history.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		logger.Info("connected to history database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return store, pool.Close, nil
}
