package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables, applies defaults for
// unset values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Defaults returns a configuration built from tag defaults only, ignoring
// the environment. Tests and the CLI use it as a base.
func Defaults() *Config {
	cfg := &Config{}
	_ = applyDefaults(reflect.ValueOf(cfg).Elem())
	return cfg
}

// loadStruct populates struct fields from environment variables. Every bad
// or missing value is reported, not just the first.
func loadStruct(v reflect.Value) error {
	return walk(v, func(field reflect.StructField, fieldVal reflect.Value) error {
		envName := field.Tag.Get("env")
		value := os.Getenv(envName)
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value = os.Getenv(alt)
		}
		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			return nil
		}
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
		return nil
	})
}

func applyDefaults(v reflect.Value) error {
	return walk(v, func(field reflect.StructField, fieldVal reflect.Value) error {
		if def := field.Tag.Get("default"); def != "" {
			return setField(fieldVal, def)
		}
		return nil
	})
}

// walk visits every settable field carrying an env tag, recursing into
// nested structs, and joins the errors returned by fn.
func walk(v reflect.Value, fn func(reflect.StructField, reflect.Value) error) error {
	var errs []error
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)
		if !fieldVal.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := walk(fieldVal, fn); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if field.Tag.Get("env") == "" {
			continue
		}
		if err := fn(field, fieldVal); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid and describes every
// failure at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Enabled() {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errs = append(errs, "DATABASE_URL is not a valid URL")
		}
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	for _, p := range c.Server.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			errs = append(errs, fmt.Sprintf("SERVER_TRUSTED_PROXIES entry %q is not an IP or CIDR", p))
		}
	}

	if c.Convert.OutputSuffix == "" {
		errs = append(errs, "CONVERT_OUTPUT_SUFFIX must not be empty")
	}
	if strings.ContainsAny(c.Convert.OutputSuffix, `/\`) {
		errs = append(errs, "CONVERT_OUTPUT_SUFFIX must not contain path separators")
	}
	if c.Convert.MaxFileSize <= 0 {
		errs = append(errs, "CONVERT_MAX_FILE_SIZE must be positive")
	}
	if c.Convert.MaxConcurrent <= 0 {
		errs = append(errs, "CONVERT_MAX_CONCURRENT must be positive")
	}
	if c.Convert.MaxWaitTime <= 0 {
		errs = append(errs, "CONVERT_MAX_WAIT_TIME must be positive")
	}
	if c.Convert.Timeout <= 0 {
		errs = append(errs, "CONVERT_TIMEOUT must be positive")
	}

	if c.Rates.Timeout < 0 {
		errs = append(errs, "RATES_TIMEOUT must be non-negative")
	}
	if c.Rates.MaxRetries < 0 {
		errs = append(errs, "RATES_MAX_RETRIES must be non-negative")
	}
	if c.Rates.RequestsPerSecond < 0 {
		errs = append(errs, "RATES_REQUESTS_PER_SECOND must be non-negative")
	}
	if c.Rates.CacheTTL <= 0 {
		errs = append(errs, "RATES_CACHE_TTL must be positive")
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a representation safe for logging. The database URL is
// masked.
func (c *Config) String() string {
	db := "disabled"
	if c.Database.Enabled() {
		db = "[MASKED]"
	}
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d, TrustedProxies: %v}, ",
		c.Server.Host, c.Server.Port, c.Server.TrustedProxies)
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d}, ", db, c.Database.MaxConns)
	fmt.Fprintf(&b, "Convert: {OutputSuffix: %q, MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Convert.OutputSuffix, c.Convert.MaxFileSize, c.Convert.MaxConcurrent)
	fmt.Fprintf(&b, "Rates: {File: %q, MaxRetries: %d, CacheTTL: %s}, ",
		c.Rates.File, c.Rates.MaxRetries, c.Rates.CacheTTL)
	fmt.Fprintf(&b, "RateLimit: {Enabled: %t, RequestsPerMinute: %d}, ", c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Metrics: {Enabled: %t}, ", c.Metrics.Enabled)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
