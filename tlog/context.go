// Package tlog carries a zap logger in context.Context.
package tlog

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// Get returns the logger carried by the context, or a no-op logger
func Get(ctx context.Context) *zap.Logger {
	logger, _ := ctx.Value(loggerKey{}).(*zap.Logger)
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// WithLogger returns a context carrying the logger in place of any other
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// With adds fields to the logger carried by the context
func With(ctx context.Context, fields ...zap.Field) context.Context {
	return WithLogger(ctx, Get(ctx).With(fields...))
}

// Named is With for a component: the logger name gets the component name
// appended, so that "scan" under "cli" logs as "cli.scan"
func Named(ctx context.Context, component string, fields ...zap.Field) context.Context {
	return WithLogger(ctx, Get(ctx).Named(component).With(fields...))
}
