// Package zaplogger adapts zap to the observability.Logger port.
package zaplogger

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/observability"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logger struct{ l *zap.Logger }

// New wraps base (the global logger when nil). Fixed fields are bound once.
func New(base *zap.Logger, fixed ...observability.Field) observability.Logger {
	if base == nil {
		base = zap.L()
	}
	if len(fixed) > 0 {
		base = base.With(fields(fixed)...)
	}
	return &logger{l: base}
}

func (z *logger) With(fs ...observability.Field) observability.Logger {
	if len(fs) == 0 {
		return z
	}
	return &logger{l: z.l.With(fields(fs)...)}
}

func (z *logger) Debug(msg string, fs ...observability.Field) { z.write(zapcore.DebugLevel, msg, fs) }
func (z *logger) Info(msg string, fs ...observability.Field)  { z.write(zapcore.InfoLevel, msg, fs) }
func (z *logger) Warn(msg string, fs ...observability.Field)  { z.write(zapcore.WarnLevel, msg, fs) }
func (z *logger) Error(msg string, fs ...observability.Field) { z.write(zapcore.ErrorLevel, msg, fs) }

// write skips field conversion for disabled levels.
func (z *logger) write(lvl zapcore.Level, msg string, fs []observability.Field) {
	if ce := z.l.Check(lvl, msg); ce != nil {
		ce.Write(fields(fs)...)
	}
}

func (z *logger) Sync() error { return z.l.Sync() }

func fields(fs []observability.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fs))
	for _, f := range fs {
		out = append(out, field(f))
	}
	return out
}

func field(f observability.Field) zap.Field {
	switch v := f.Value.(type) {
	case error:
		return zap.NamedError(f.Key, v)
	case decimal.Decimal:
		// Amounts stay exact in the output.
		return zap.String(f.Key, v.String())
	case time.Duration:
		return zap.Int64(f.Key+"_ms", v.Milliseconds())
	case []string:
		return zap.Strings(f.Key, v)
	case fmt.Stringer:
		return zap.Stringer(f.Key, v)
	}
	return zap.Any(f.Key, f.Value)
}
