// Package worker binds the inventory service's broker subscriptions.
package worker

import (
	"context"

	appinv "github.com/Zhima-Mochi/storefront/internal/application/inventory"
	"github.com/Zhima-Mochi/storefront/internal/domain/messaging"
	domstock "github.com/Zhima-Mochi/storefront/internal/domain/stock"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"
)

const componentInventoryWorker = "inventory_worker"

type Worker struct {
	subscriber messaging.Subscriber
	consumer   *appinv.AdjustmentConsumer
	log        observability.Logger
}

func New(subscriber messaging.Subscriber, consumer *appinv.AdjustmentConsumer, logger observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Worker{
		subscriber: subscriber,
		consumer:   consumer,
		log:        logger.With(observability.F("component", componentInventoryWorker)),
	}
}

// Start registers the adjustment handlers and an operator log for each dead-letter topic.
func (w *Worker) Start() {
	w.consumer.Register(w.subscriber)
	for _, topic := range []string{domstock.TopicDecrement, domstock.TopicIncrement} {
		w.subscriber.Subscribe(messaging.DeadLetterTopic(topic), w.handleDeadLetter)
	}
}

func (w *Worker) handleDeadLetter(ctx context.Context, m messaging.Message) error {
	logctx.FromOr(ctx, w.log).With(observability.F("component", componentInventoryWorker)).Error("stock_adjustment_dead_lettered",
		observability.F("topic", m.Headers[messaging.HeaderOriginalTopic]),
		observability.F("product_id", m.Key),
		observability.F("attempts", m.Headers[messaging.HeaderAttempts]),
		observability.F("reason", m.Headers[messaging.HeaderDeadLetterReason]),
		observability.F("payload", string(m.Payload)),
	)
	return nil
}
