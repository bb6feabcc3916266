package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

const SpanPrefix = "UC."

// Instruments holds the RED metrics, tracer and base logger shared by use cases.
type Instruments struct {
	Log    observability.Logger
	Tracer observability.Tracer

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	metrics      observability.Metrics
}

func NewInstruments(tel observability.Observability, service string) Instruments {
	tel = observability.Or(tel)
	m := tel.Metrics()
	return Instruments{
		Log:          tel.Logger().With(observability.F("service", service)),
		Tracer:       tel.Tracer(),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
		metrics:      m,
	}
}

// Counter exposes a domain counter from the same provider.
func (in Instruments) Counter(key observability.MetricKey) observability.Counter {
	if in.metrics == nil {
		return observability.NopCounter()
	}
	return in.metrics.Counter(key)
}

// ObserveExternal records one call to a collaborator.
func (in Instruments) ObserveExternal(peer, endpoint, outcome string, start time.Time) {
	if in.extCounter != nil {
		in.extCounter.Add(1,
			observability.L("peer", peer),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
	}
	if in.extHistogram != nil {
		in.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", peer),
			observability.L("endpoint", endpoint),
		)
	}
}

// Run tracks one use case execution until End.
type Run struct {
	in      Instruments
	ctx     context.Context
	useCase string
	span    trace.Span
	start   time.Time
	logger  observability.Logger
	fields  []observability.Field

	Outcome string
	Status  string
}

// Begin opens the span and scoped logger for useCase.
func (in Instruments) Begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	if in.Tracer == nil {
		in.Tracer = observability.NopTracer()
	}
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := in.Tracer.Start(ctx, SpanPrefix+spanName, attrs...)
	return ctx, &Run{
		in:      in,
		ctx:     ctx,
		useCase: useCase,
		span:    span,
		start:   time.Now(),
		logger:  logctx.FromOr(ctx, in.Log).With(observability.F("use_case", useCase)),
		Outcome: "success",
		Status:  "OK",
	}
}

func (r *Run) Logger() observability.Logger { return r.logger }

func (r *Run) Span() trace.Span { return r.span }

// Fail marks the run as an error with the given status text.
func (r *Run) Fail(status string) {
	r.Outcome, r.Status = "error", status
}

// Note attaches fields to the closing log line.
func (r *Run) Note(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

// End closes the span, records RED metrics and emits the use_case_done line.
func (r *Run) End(err error) {
	lat := time.Since(r.start).Seconds()
	if err != nil && r.Outcome == "success" {
		r.Outcome, r.Status = "error", "ERROR"
	}

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.Status)
		} else {
			r.span.SetStatus(codes.Ok, r.Status)
		}
		r.span.End()
	}

	if r.in.reqCounter != nil {
		r.in.reqCounter.Add(1,
			observability.L("use_case", r.useCase),
			observability.L("outcome", r.Outcome),
		)
	}
	if r.in.durHistogram != nil {
		r.in.durHistogram.Observe(lat, observability.L("use_case", r.useCase))
	}

	fields := []observability.Field{
		observability.F("outcome", r.Outcome),
		observability.F("status", r.Status),
		observability.F("latency_seconds", lat),
	}
	fields = append(fields, observability.TraceFields(r.ctx)...)
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.logger.Info("use_case_done", fields...)
}
