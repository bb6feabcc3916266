package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Zhima-Mochi/storefront/internal/config"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/pkg/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Telemetry owns the process logger, tracer provider and metric registry.
type Telemetry struct {
	zap      *zap.Logger
	registry *prometheus.Registry
	shutdown func(context.Context) error

	// Obs is handed to every component; its logger carries no trace ids.
	Obs observability.Observability
	// System logs lifecycle events outside any request.
	System observability.Logger
}

func NewTelemetry(ctx context.Context, cfg config.Config) (*Telemetry, error) {
	zl, err := logging.NewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("app: logger: %w", err)
	}
	zap.ReplaceGlobals(zl)

	shutdown, err := oteltrace.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		_ = zl.Sync()
		return nil, fmt.Errorf("app: tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	logger := zaplogger.New(zl)
	return &Telemetry{
		zap:      zl,
		registry: reg,
		shutdown: shutdown,
		Obs:      telemetry.NewWithRegistry(oteltrace.New(cfg.ServiceName), logger, prometrics.New(reg, "", "")),
		System:   zaplogger.New(logging.WithTrace(zl, logging.SystemTraceID, logging.SystemSpanID)),
	}, nil
}

// MetricsHandler serves the registry in the Prometheus exposition format.
func (t *Telemetry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{Registry: t.registry})
}

// Close flushes pending spans and log entries.
func (t *Telemetry) Close(ctx context.Context) error {
	var errs []error
	if t.shutdown != nil {
		if err := t.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: tracing shutdown: %w", err))
		}
	}
	// Sync on stdout returns EINVAL on some platforms; it carries no information.
	_ = t.zap.Sync()
	return errors.Join(errs...)
}
