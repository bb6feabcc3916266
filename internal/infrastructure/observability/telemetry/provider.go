// Package telemetry bundles a tracer, logger and metrics into one observability.Observability.
package telemetry

import (
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/storefront/internal/observability"
)

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

// New assembles a provider; any nil part is replaced by its no-op.
func New(tracer observability.Tracer, logger observability.Logger, metrics observability.Metrics) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &provider{tracer: tracer, logger: logger, metrics: metrics}
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }

// NewWithRegistry registers the storefront instrument catalogue on reg and serves it.
func NewWithRegistry(tracer observability.Tracer, logger observability.Logger, reg prometrics.Registry) observability.Observability {
	return New(tracer, logger, prometrics.Register(reg))
}
