package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}

	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Rate limiting
	switch c.RateLimit.Backend {
	case RateLimitBackendMemory, RateLimitBackendRedis:
	default:
		errs = append(errs, fmt.Sprintf("RATELIMIT_BACKEND must be %q or %q, got %q",
			RateLimitBackendMemory, RateLimitBackendRedis, c.RateLimit.Backend))
	}
	if c.RateLimit.CallerLimit < 1 {
		errs = append(errs, "RATELIMIT_CALLER_LIMIT must be positive")
	}
	if c.RateLimit.GlobalLimit < c.RateLimit.CallerLimit {
		errs = append(errs, "RATELIMIT_GLOBAL_LIMIT must not be lower than RATELIMIT_CALLER_LIMIT")
	}
	if c.RateLimit.Window < time.Second {
		errs = append(errs, "RATELIMIT_WINDOW must be at least 1s")
	}
	if c.RateLimit.SweepInterval <= 0 {
		errs = append(errs, "RATELIMIT_SWEEP_INTERVAL must be positive")
	}

	// Quota ceilings
	if c.Quota.FreeGenerations < 0 {
		errs = append(errs, "QUOTA_FREE_GENERATIONS must not be negative")
	}
	if c.Quota.FreeExports < 0 {
		errs = append(errs, "QUOTA_FREE_EXPORTS must not be negative")
	}

	// Providers
	if c.Providers.Primary == c.Providers.Alternate {
		errs = append(errs, "PROVIDER_PRIMARY and PROVIDER_ALTERNATE must differ")
	}
	if c.Providers.Timeout <= 0 {
		errs = append(errs, "PROVIDER_TIMEOUT must be positive")
	}
	if c.Providers.RPS < 0 {
		errs = append(errs, "PROVIDER_RPS must not be negative")
	}

	// Backends without credentials are skipped by the router: warn only
	if c.Gemini.APIKey == "" && c.Groq.APIKey == "" {
		slog.Warn("no generation backend has an API key; generation requests will fail")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
