// Package reqctx carries per-request values through a context.
package reqctx

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	requestIDKey contextKey = "requestID"
	loggerKey    contextKey = "logger"
	actorKey     contextKey = "actor"
)

// WithRequestID returns a new context that carries the request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID retrieves the request identifier from the context, if any.
func RequestID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// WithLogger returns a new context that carries a request scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the request logger, falling back to slog.Default.
func Logger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// WithActor records who is performing the request, as written to the
// audit columns.
func WithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey, actor)
}

// Actor returns the acting user, if one was recorded.
func Actor(ctx context.Context) *string {
	if ctx == nil {
		return nil
	}
	actor, ok := ctx.Value(actorKey).(string)
	if !ok || actor == "" {
		return nil
	}
	return &actor
}
