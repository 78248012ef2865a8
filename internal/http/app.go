// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"lead_portal_backend/platform/config"
	"lead_portal_backend/platform/httpkit"
	"lead_portal_backend/platform/logger"
	"lead_portal_backend/platform/metrics"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration (HTTP and JWT settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness/health checks (e.g., DB ping).
	Health HealthChecker
	// Metrics records request metrics and serves /metrics.
	Metrics *metrics.Collector
	// AuthAttempts blocks clients after repeated invalid tokens. Optional.
	AuthAttempts httpkit.AttemptLimiter
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
