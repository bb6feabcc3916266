package stock

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/messaging"
	domstock "github.com/Zhima-Mochi/storefront/internal/domain/stock"
	"github.com/Zhima-Mochi/storefront/internal/domain/transaction"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"
	"github.com/Zhima-Mochi/storefront/internal/pkg/apperr"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	defaultPublishTimeout = 2 * time.Second
	publishPeer           = "broker"
)

// Publisher emits stock adjustment intents to the broker.
type Publisher struct {
	broker  messaging.Publisher
	timeout time.Duration

	log          observability.Logger
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewPublisher(broker messaging.Publisher, tel observability.Observability, timeout time.Duration) *Publisher {
	tel = observability.Or(tel)
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	m := tel.Metrics()
	return &Publisher{
		broker:       broker,
		timeout:      timeout,
		log:          tel.Logger().With(observability.F("component", "stock_publisher")),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// Publish sends one adjustment under the kind's routing key.
// Broker failures come back as transient errors; the caller's state is never touched.
func (p *Publisher) Publish(ctx context.Context, kind domstock.Kind, productID string, quantity int, correlationID string) (err error) {
	adj := domstock.Adjustment{Kind: kind, ProductID: productID, Quantity: quantity, CorrelationID: correlationID}
	payload, err := domstock.Encode(adj)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "encode adjustment", err)
	}
	topic := kind.Topic()

	headers := map[string]string{}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))

	// Adjustments follow a committed transition, so a caller that went away does not stop them.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	err = p.broker.Publish(pubCtx, messaging.Message{
		Topic:   topic,
		Key:     productID,
		Payload: payload,
		Headers: headers,
	})
	if err != nil {
		outcome = "error"
	}
	p.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", topic),
		observability.L("outcome", outcome),
	)
	p.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", topic),
	)

	logger := logctx.FromOr(ctx, p.log).With(
		observability.F("topic", topic),
		observability.F("product_id", productID),
		observability.F("quantity", quantity),
		observability.F("correlation_id", correlationID),
	)
	if err != nil {
		logger.Warn("stock_adjustment_publish_failed", observability.F("error", err))
		return apperr.Transient("publish "+topic, err)
	}
	logger.Debug("stock_adjustment_published")
	return nil
}

// FailedItem is a line item whose adjustment could not be published.
type FailedItem struct {
	Item transaction.LineItem
	Err  error
}

// PublishAll publishes one adjustment per line item and reports the ones that failed.
func (p *Publisher) PublishAll(ctx context.Context, kind domstock.Kind, items []transaction.LineItem, correlationID string) []FailedItem {
	var failed []FailedItem
	for _, it := range items {
		if err := p.Publish(ctx, kind, it.ProductID, it.Quantity, correlationID); err != nil {
			failed = append(failed, FailedItem{Item: it, Err: err})
		}
	}
	return failed
}
