// Package logctx carries the request- or delivery-scoped logger on a context.
package logctx

import (
	"context"

	"github.com/Zhima-Mochi/storefront/internal/observability"
)

type loggerKey struct{}

// With stores logger on ctx. A nil logger leaves ctx unchanged.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithFields narrows the logger already on ctx, e.g. with the caller's user id once authenticated.
// Without a logger on ctx there is nothing to narrow and ctx is returned as is.
func WithFields(ctx context.Context, fields ...observability.Field) context.Context {
	logger := From(ctx)
	if logger == nil || len(fields) == 0 {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger.With(fields...))
}

func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(observability.Logger)
	return logger
}

// FromOr returns the context logger, else fallback, else the no-op logger.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	if fallback == nil {
		return observability.NopLogger()
	}
	return fallback
}
