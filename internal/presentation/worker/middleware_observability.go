package workerpresentation

import (
	"context"
	"strconv"

	"github.com/Zhima-Mochi/storefront/internal/domain/messaging"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// HeaderMessageID optionally carries a producer-assigned message id.
const HeaderMessageID = "x-message-id"

// WithEventContext injects a delivery-scoped logger for background executions.
// attrs must stay low-cardinality (topic, attempt, worker); event_id is generated when absent.
func WithEventContext(ctx context.Context, base observability.Logger, attrs map[string]string) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}
	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields := []observability.Field{observability.F("event_id", evtID)}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}
	return logctx.With(ctx, base.With(fields...))
}

// Middleware continues the producer's trace from message headers and scopes the logger to the delivery.
func Middleware(base observability.Logger, tel observability.Observability) func(messaging.Handler) messaging.Handler {
	tel = observability.Or(tel)
	if base == nil {
		base = tel.Logger()
	}
	tracer := otel.Tracer("storefront.worker")
	prop := otel.GetTextMapPropagator()

	return func(next messaging.Handler) messaging.Handler {
		return func(ctx context.Context, m messaging.Message) error {
			if m.Headers != nil {
				ctx = prop.Extract(ctx, propagation.MapCarrier(m.Headers))
			}
			ctx, span := tracer.Start(ctx, "consume "+m.Topic,
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(
					attribute.String("messaging.destination", m.Topic),
					attribute.String("messaging.message.key", m.Key),
					attribute.Int("messaging.attempt", m.Attempt),
				),
			)
			defer span.End()

			ctx = WithEventContext(ctx, base, map[string]string{
				"event_id": m.Headers[HeaderMessageID],
				"topic":    m.Topic,
				"attempt":  strconv.Itoa(m.Attempt),
			})
			err := next(ctx, m)
			if err != nil {
				span.RecordError(err)
			}
			return err
		}
	}
}

// Subscriber wraps every handler registered through it with Middleware.
type Subscriber struct {
	inner messaging.Subscriber
	wrap  func(messaging.Handler) messaging.Handler
}

func NewSubscriber(inner messaging.Subscriber, base observability.Logger, tel observability.Observability) *Subscriber {
	return &Subscriber{inner: inner, wrap: Middleware(base, tel)}
}

func (s *Subscriber) Subscribe(topic string, h messaging.Handler) {
	s.inner.Subscribe(topic, s.wrap(h))
}
