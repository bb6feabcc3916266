// Package logging builds the zap logger shared by every storefront process.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Trace fields for entries written outside any request or message.
const (
	SystemTraceID = "system"
	SystemSpanID  = "system"
)

// Options controls how the process logger is built.
type Options struct {
	Service string
	Env     string
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// File, when set, receives a copy of every entry.
	File string
}

// NewLogger returns a JSON logger writing to stdout, tagged with service and env.
func NewLogger(opts Options) (*zap.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	sinks, err := sinks(opts.File)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = sinks
	cfg.ErrorOutputPaths = sinks
	cfg.EncoderConfig = encoderConfig()
	cfg.InitialFields = map[string]any{
		"service": opts.Service,
		"env":     opts.Env,
	}
	return cfg.Build()
}

// WithTrace pins trace_id and span_id on logger. Empty ids are written as "unknown"
// so that both keys are present on every entry.
func WithTrace(logger *zap.Logger, traceID, spanID string) *zap.Logger {
	if logger == nil {
		logger = zap.L()
	}
	return logger.With(
		zap.String("trace_id", orUnknown(traceID)),
		zap.String("span_id", orUnknown(spanID)),
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.MessageKey = "msg"
	ec.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	return ec
}

func parseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return zapcore.InfoLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	case "debug", "info", "warn", "error":
		return zapcore.ParseLevel(s)
	}
	return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", s)
}

// sinks lists stdout plus file, creating the file and its directory first.
func sinks(file string) ([]string, error) {
	if file == "" {
		return []string{"stdout"}, nil
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, fmt.Errorf("logging: log dir: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: log file: %w", err)
	}
	_ = f.Close()
	return []string{"stdout", file}, nil
}
