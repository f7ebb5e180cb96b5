// Package config loads application settings from environment variables with
// defaults, and validates them on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Convert  ConvertConfig
	Rates    RatesConfig
	Rate     RateLimitConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing a response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 2m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`

	// TrustedProxies lists CIDRs whose X-Real-IP / X-Forwarded-For headers
	// are honoured. Empty trusts no proxy.
	TrustedProxies []string `env:"SERVER_TRUSTED_PROXIES"`
}

// DatabaseConfig holds the optional conversion history database.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables history.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time of a connection (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a history database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// ConvertConfig holds conversion settings.
type ConvertConfig struct {
	// OutputSuffix is appended to the input file stem (default: _converted)
	OutputSuffix string `env:"CONVERT_OUTPUT_SUFFIX" default:"_converted"`

	// MaxFileSize is the maximum input size in bytes (default: 50MB)
	MaxFileSize int64 `env:"CONVERT_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the maximum number of parallel HTTP conversions (default: 4)
	MaxConcurrent int `env:"CONVERT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long an upload waits for a conversion slot (default: 15s)
	MaxWaitTime time.Duration `env:"CONVERT_MAX_WAIT_TIME" default:"15s"`

	// Timeout bounds a single conversion (default: 5m)
	Timeout time.Duration `env:"CONVERT_TIMEOUT" default:"5m"`
}

// RatesConfig holds the historical price source settings.
type RatesConfig struct {
	// File is a CSV of asset,time,usd observations. Empty disables lookups.
	File string `env:"RATES_FILE"`

	// Timeout bounds a single lookup (default: 10s)
	Timeout time.Duration `env:"RATES_TIMEOUT" default:"10s"`

	// MaxRetries is the number of retries after a failed lookup (default: 2)
	MaxRetries int `env:"RATES_MAX_RETRIES" default:"2"`

	// Backoff is the delay before the first retry, doubled each time (default: 200ms)
	Backoff time.Duration `env:"RATES_BACKOFF" default:"200ms"`

	// MaxBackoff caps the retry delay (default: 5s)
	MaxBackoff time.Duration `env:"RATES_MAX_BACKOFF" default:"5s"`

	// RequestsPerSecond throttles lookups; 0 disables (default: 0)
	RequestsPerSecond float64 `env:"RATES_REQUESTS_PER_SECOND" default:"0"`

	// CacheTTL is how long successful lookups are kept (default: 1h)
	CacheTTL time.Duration `env:"RATES_CACHE_TTL" default:"1h"`
}

// RateLimitConfig holds per-client HTTP request throttling.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the limit per client IP (default: 60)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"60"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	// Enabled serves /metrics from the HTTP server (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
