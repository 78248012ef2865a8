// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides settings for Redis-backed components.
type RedisConfig interface {
	GetRedisURL() string
	IsRedisEnabled() bool
}

// RateLimitSettings describes one configured limiter instance.
type RateLimitSettings struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// IntakeConfig provides settings for the submission guard.
type IntakeConfig interface {
	GetFormRateLimit() RateLimitSettings
	GetAuthRateLimit() RateLimitSettings
	GetDuplicateWindow() time.Duration
}

// FeedConfig provides settings for the live lead feed.
type FeedConfig interface {
	GetFeedDebounce() time.Duration
	GetFeedUsePostgresNotify() bool
	GetEnrichmentConcurrency() int
}

// SchedulerConfig provides settings for the background worker.
type SchedulerConfig interface {
	RedisConfig
	GetWorkerConcurrency() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	MigrateOnStart        bool
	JWTAccessSecret       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	RedisURL              string
	FormRateLimit         RateLimitSettings
	AuthRateLimit         RateLimitSettings
	DuplicateWindow       time.Duration
	FeedDebounce          time.Duration
	FeedUsePostgresNotify bool
	EnrichmentConcurrency int
	WorkerConcurrency     int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// RedisConfig implementation
func (c *Config) GetRedisURL() string  { return c.RedisURL }
func (c *Config) IsRedisEnabled() bool { return c.RedisURL != "" }

// IntakeConfig implementation
func (c *Config) GetFormRateLimit() RateLimitSettings { return c.FormRateLimit }
func (c *Config) GetAuthRateLimit() RateLimitSettings { return c.AuthRateLimit }
func (c *Config) GetDuplicateWindow() time.Duration   { return c.DuplicateWindow }

// FeedConfig implementation
func (c *Config) GetFeedDebounce() time.Duration { return c.FeedDebounce }
func (c *Config) GetFeedUsePostgresNotify() bool { return c.FeedUsePostgresNotify }
func (c *Config) GetEnrichmentConcurrency() int  { return c.EnrichmentConcurrency }

// SchedulerConfig implementation
func (c *Config) GetWorkerConcurrency() int { return c.WorkerConcurrency }

// Load reads configuration from environment variables, with a .env file
// taking effect when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		MigrateOnStart:  strings.EqualFold(getEnv("MIGRATE_ON_START", "true"), "true"),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:        getEnv("REDIS_URL", ""),
		FormRateLimit: RateLimitSettings{
			MaxAttempts:   mustInt(getEnv("INTAKE_FORM_MAX_ATTEMPTS", "3")),
			Window:        mustDuration(getEnv("INTAKE_FORM_WINDOW", "10m")),
			BlockDuration: mustDuration(getEnv("INTAKE_FORM_BLOCK", "30m")),
		},
		AuthRateLimit: RateLimitSettings{
			MaxAttempts:   mustInt(getEnv("INTAKE_AUTH_MAX_ATTEMPTS", "5")),
			Window:        mustDuration(getEnv("INTAKE_AUTH_WINDOW", "15m")),
			BlockDuration: mustDuration(getEnv("INTAKE_AUTH_BLOCK", "30m")),
		},
		DuplicateWindow:       mustDuration(getEnv("INTAKE_DUPLICATE_WINDOW", "24h")),
		FeedDebounce:          mustDuration(getEnv("LEAD_FEED_DEBOUNCE", "250ms")),
		FeedUsePostgresNotify: strings.EqualFold(getEnv("LEAD_FEED_PG_NOTIFY", "false"), "true"),
		EnrichmentConcurrency: mustInt(getEnv("LEAD_ENRICHMENT_CONCURRENCY", "8")),
		WorkerConcurrency:     mustInt(getEnv("WORKER_CONCURRENCY", "5")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if err := validateLimit("INTAKE_FORM", cfg.FormRateLimit); err != nil {
		return nil, err
	}
	if err := validateLimit("INTAKE_AUTH", cfg.AuthRateLimit); err != nil {
		return nil, err
	}
	if cfg.DuplicateWindow <= 0 {
		return nil, fmt.Errorf("INTAKE_DUPLICATE_WINDOW must be a positive duration")
	}
	if cfg.EnrichmentConcurrency <= 0 {
		cfg.EnrichmentConcurrency = 1
	}

	return cfg, nil
}

func validateLimit(prefix string, s RateLimitSettings) error {
	if s.MaxAttempts <= 0 {
		return fmt.Errorf("%s_MAX_ATTEMPTS must be positive", prefix)
	}
	if s.Window <= 0 || s.BlockDuration <= 0 {
		return fmt.Errorf("%s_WINDOW and %s_BLOCK must be positive durations", prefix, prefix)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
