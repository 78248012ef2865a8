package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/leads")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := RateLimitSettings{MaxAttempts: 3, Window: 10 * time.Minute, BlockDuration: 30 * time.Minute}
	if cfg.GetFormRateLimit() != want {
		t.Fatalf("form limit = %+v, want %+v", cfg.GetFormRateLimit(), want)
	}
	if cfg.GetAuthRateLimit().MaxAttempts != 5 || cfg.GetAuthRateLimit().Window != 15*time.Minute {
		t.Fatalf("unexpected auth limit %+v", cfg.GetAuthRateLimit())
	}
	if cfg.GetDuplicateWindow() != 24*time.Hour {
		t.Fatalf("duplicate window = %v", cfg.GetDuplicateWindow())
	}
	if cfg.GetFeedDebounce() != 250*time.Millisecond {
		t.Fatalf("feed debounce = %v", cfg.GetFeedDebounce())
	}
	if cfg.IsRedisEnabled() {
		t.Fatal("redis should be disabled without REDIS_URL")
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/leads")
	t.Setenv("JWT_ACCESS_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_ACCESS_SECRET")
	}
}

func TestLoadRejectsBadLimits(t *testing.T) {
	setRequired(t)
	t.Setenv("INTAKE_FORM_WINDOW", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparsable window")
	}
}

func TestWildcardOriginForbidsCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "*")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when wildcard origin allows credentials")
	}

	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.GetCORSAllowAll() {
		t.Fatal("wildcard origin should allow all")
	}
}
