// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// PhoneKey is the context key for the end-user phone number
	PhoneKey contextKey = "phone"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and phone from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if phone, ok := ctx.Value(PhoneKey).(string); ok && phone != "" {
		newLogger = newLogger.WithPhone(phone)
	}

	return newLogger
}

// WithPhone returns a logger bound to an end-user phone number.
func (l *Logger) WithPhone(phone string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("phone", phone)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// WebhookEvent logs an inbound webhook delivery.
func (l *Logger) WebhookEvent(source, kind, phone string) {
	l.Info("webhook_event",
		slog.String("source", source),
		slog.String("kind", kind),
		slog.String("phone", phone),
	)
}

// DeliveryFailure logs a failed outbound delivery attempt. Terminal failures
// (event dropped after max retries) are logged at error level so dropped
// events are never silent.
func (l *Logger) DeliveryFailure(eventName, eventID string, attempt int, terminal bool, err error) {
	if terminal {
		l.Error("delivery_terminal_failure",
			slog.String("event", eventName),
			slog.String("event_id", eventID),
			slog.Int("attempts", attempt),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Warn("delivery_failure",
		slog.String("event", eventName),
		slog.String("event_id", eventID),
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	)
}

// SendFailure logs a failed outbound WhatsApp send. Sends are best-effort and
// never propagate to the webhook caller, so the log is the only trace.
func (l *Logger) SendFailure(phone string, err error) {
	l.Warn("whatsapp_send_failure",
		slog.String("phone", phone),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
