package logging

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

// Inject returns a context carrying the given logger.
func Inject(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// GetLoggerFromContext returns the logger carried by the context, or a no-op
// logger if none was injected.
func GetLoggerFromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}
