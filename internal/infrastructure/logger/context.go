package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// PrinterKey is the context key for the printer a request targets
	PrinterKey contextKey = "printer"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds request ID to context and returns enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithPrinter adds the target printer to context and returns enriched logger
func WithPrinter(ctx context.Context, logger *zap.Logger, printer string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, PrinterKey, printer)
	enriched := logger.With(zap.String("printer", printer))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetPrinter retrieves the target printer from context
func GetPrinter(ctx context.Context) string {
	if printer, ok := ctx.Value(PrinterKey).(string); ok {
		return printer
	}
	return ""
}

// L returns a logger for ctx: the context logger, or fallback when none is
// attached, carrying request_id when the context has one.
// Usage: logger.L(ctx, s.logger).Info("message", zap.String("key", "value"))
func L(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		return fallback.With(zap.String("request_id", requestID))
	}
	return fallback
}
