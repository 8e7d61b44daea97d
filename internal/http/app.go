// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"pressing_chatbot_backend/internal/events"
	"pressing_chatbot_backend/platform/config"
	"pressing_chatbot_backend/platform/logger"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the HTTP server configuration.
	Config config.HTTPConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness checks; nil when no backing store to ping.
	Health HealthChecker
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// MetricsGatherer serves /metrics; nil disables the endpoint.
	MetricsGatherer prometheus.Gatherer
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
