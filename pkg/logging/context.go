package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey int

const loggerKey contextKey = 0

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// WithDefaultLogger adds logger to the context unless it already carries
// one. Components pass their configured logger here so a caller's context
// fields win.
func WithDefaultLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if _, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok {
		return ctx
	}
	return WithLogger(ctx, logger)
}

// WithRequestID adds a request ID to the logger in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithField(ctx, "request_id", requestID)
}

// WithFields adds structured fields to the logger in the context.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	logCtx := FromContext(ctx).With()
	for key, value := range fields {
		logCtx = addField(logCtx, key, value)
	}
	logger := logCtx.Logger()
	return WithLogger(ctx, &logger)
}

// WithField adds a single field to the logger in the context.
func WithField(ctx context.Context, key string, value any) context.Context {
	logger := addField(FromContext(ctx).With(), key, value).Logger()
	return WithLogger(ctx, &logger)
}

// WithCategory adds policy category context to the logger.
func WithCategory(ctx context.Context, category string) context.Context {
	return WithField(ctx, "category", category)
}

// WithPolicy adds policy identity context to the logger.
func WithPolicy(ctx context.Context, policyID, policyName string) context.Context {
	return WithFields(ctx, map[string]any{
		"policy_id":   policyID,
		"policy_name": policyName,
	})
}

// WithOperation adds operation context to the logger.
func WithOperation(ctx context.Context, operation string) context.Context {
	return WithField(ctx, "operation", operation)
}
