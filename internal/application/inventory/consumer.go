package inventory

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/storefront/internal/application"
	dominv "github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	"github.com/Zhima-Mochi/storefront/internal/domain/messaging"
	domstock "github.com/Zhima-Mochi/storefront/internal/domain/stock"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const inventoryService = "inventory-service"

// Adjustment outcomes, also used as the outcome label of stock_adjustments_total.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeNoop      = "noop"
	OutcomeRejected  = "rejected"
	OutcomeRetry     = "retry"
)

// LowStockNotifier is told about products at or below their threshold.
type LowStockNotifier interface {
	Notify(ctx context.Context, p *dominv.Product, current, threshold int)
}

type AdjustmentInput struct {
	Kind    domstock.Kind
	Message messaging.Message
}

type AdjustmentResult struct {
	Outcome  string
	Product  *dominv.Product
	LowStock bool
}

// AdjustmentConsumer applies stock adjustments exactly once per idempotency key.
type AdjustmentConsumer struct {
	products dominv.Repository
	ledger   dominv.Ledger
	notifier LowStockNotifier

	in            application.Instruments
	adjustCounter observability.Counter // stock_adjustments_total{kind,outcome}
}

var _ application.UseCase[AdjustmentInput, *AdjustmentResult] = (*AdjustmentConsumer)(nil)

func NewAdjustmentConsumer(products dominv.Repository, ledger dominv.Ledger, notifier LowStockNotifier, tel observability.Observability) *AdjustmentConsumer {
	in := application.NewInstruments(tel, inventoryService)
	return &AdjustmentConsumer{
		products:      products,
		ledger:        ledger,
		notifier:      notifier,
		in:            in,
		adjustCounter: in.Counter(observability.MStockAdjustments),
	}
}

// Register subscribes the decrement and increment handlers.
func (c *AdjustmentConsumer) Register(sub messaging.Subscriber) {
	sub.Subscribe(domstock.TopicDecrement, c.Handler(domstock.KindDecrement))
	sub.Subscribe(domstock.TopicIncrement, c.Handler(domstock.KindIncrement))
}

// Handler adapts Execute to the broker. Permanent errors must be dead-lettered, others retried.
func (c *AdjustmentConsumer) Handler(kind domstock.Kind) messaging.Handler {
	return func(ctx context.Context, m messaging.Message) error {
		_, err := c.Execute(ctx, AdjustmentInput{Kind: kind, Message: m})
		return err
	}
}

func (c *AdjustmentConsumer) Execute(ctx context.Context, cmd AdjustmentInput) (res *AdjustmentResult, err error) {
	useCase := "stock." + string(cmd.Kind)
	ctx, run := c.in.Begin(ctx, useCase, "Apply"+titleKind(cmd.Kind),
		attribute.String("messaging.topic", cmd.Message.Topic),
		attribute.Int("messaging.attempt", cmd.Message.Attempt),
	)
	res = &AdjustmentResult{}
	defer func() {
		if err != nil {
			res.Outcome = OutcomeRetry
			if apperr.IsPermanent(err) {
				res.Outcome = OutcomeRejected
			}
		}
		c.adjustCounter.Add(1,
			observability.L("kind", string(cmd.Kind)),
			observability.L("outcome", res.Outcome),
		)
		run.Note(observability.F("adjustment_outcome", res.Outcome), observability.F("attempt", cmd.Message.Attempt))
		run.End(err)
	}()

	adj, derr := domstock.Decode(cmd.Kind, cmd.Message.Payload)
	if derr != nil {
		run.Fail("MALFORMED")
		return res, apperr.Permanent("malformed adjustment", derr)
	}
	run.Note(
		observability.F("product_id", adj.ProductID),
		observability.F("quantity", adj.Quantity),
		observability.F("correlation_id", adj.CorrelationID),
	)
	productID, _ := dominv.ParseProductID(adj.ProductID)

	key := adj.IdempotencyKey()
	claimed, cerr := c.ledger.Claim(ctx, key)
	if cerr != nil {
		run.Fail("LEDGER_UNAVAILABLE")
		return res, apperr.Transient("claim adjustment", cerr)
	}
	if !claimed {
		res.Outcome = OutcomeDuplicate
		run.Status = "DUPLICATE"
		return res, nil
	}

	updated, uerr := c.products.Update(ctx, productID, func(p *dominv.Product) error {
		if cmd.Kind == domstock.KindDecrement {
			return p.Decrement(adj.Quantity)
		}
		return p.Increment(adj.Quantity)
	})
	if uerr != nil {
		return res, c.failed(ctx, run, cmd.Kind, key, adj, res, uerr)
	}

	res.Outcome = OutcomeApplied
	res.Product = updated
	run.Note(observability.F("new_quantity", updated.Quantity))

	if updated.IsLowStock() {
		res.LowStock = true
		run.Note(observability.F("low_stock", true))
		if c.notifier != nil {
			c.notifier.Notify(ctx, updated, updated.Quantity, updated.LowStockThreshold())
		}
	}
	return res, nil
}

// failed classifies an update error. An increment against a missing product is acknowledged.
func (c *AdjustmentConsumer) failed(ctx context.Context, run *application.Run, kind domstock.Kind, key string, adj domstock.Adjustment, res *AdjustmentResult, err error) error {
	switch {
	case errors.Is(err, dominv.ErrNotFound) && kind == domstock.KindIncrement:
		res.Outcome = OutcomeNoop
		run.Status = "PRODUCT_NOT_FOUND"
		return nil
	case errors.Is(err, dominv.ErrNotFound):
		c.release(ctx, run, key)
		run.Fail("PRODUCT_NOT_FOUND")
		c.surface(run, adj, "unknown product")
		return apperr.Permanent("decrement of unknown product", err)
	case errors.Is(err, dominv.ErrInsufficientStock):
		c.release(ctx, run, key)
		run.Fail("WOULD_GO_NEGATIVE")
		c.surface(run, adj, "would drive stock negative")
		return apperr.Permanent("decrement would drive stock negative", err)
	default:
		c.release(ctx, run, key)
		run.Fail("UPDATE_FAILED")
		return apperr.Transient("update product", err)
	}
}

// release drops the claim so a later delivery or a replay from the dead-letter topic can apply.
func (c *AdjustmentConsumer) release(ctx context.Context, run *application.Run, key string) {
	if err := c.ledger.Release(context.WithoutCancel(ctx), key); err != nil {
		run.Logger().Warn("stock_adjustment_release_failed",
			observability.F("key", key),
			observability.F("error", err),
		)
	}
}

func (c *AdjustmentConsumer) surface(run *application.Run, adj domstock.Adjustment, reason string) {
	run.Logger().Error("stock_adjustment_rejected",
		observability.F("kind", string(adj.Kind)),
		observability.F("product_id", adj.ProductID),
		observability.F("quantity", adj.Quantity),
		observability.F("correlation_id", adj.CorrelationID),
		observability.F("reason", reason),
	)
}

func titleKind(k domstock.Kind) string {
	switch k {
	case domstock.KindDecrement:
		return "Decrement"
	case domstock.KindIncrement:
		return "Increment"
	}
	return "Adjustment"
}
