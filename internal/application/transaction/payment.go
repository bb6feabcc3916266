package transaction

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/storefront/internal/application"
	"github.com/Zhima-Mochi/storefront/internal/domain/payment"
	domstock "github.com/Zhima-Mochi/storefront/internal/domain/stock"
	domain "github.com/Zhima-Mochi/storefront/internal/domain/transaction"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCasePay    = "transaction.pay"
	useCaseRefund = "transaction.refund"
)

type PaymentInput struct {
	CallerID      int64
	TransactionID string
}

type PaymentResult struct {
	Transaction *domain.Transaction
	// UnpublishedItems lists line items whose stock adjustment could not be published.
	UnpublishedItems []domain.LineItem
}

// RefundID is the correlation id carried by the increments of a refunded transaction.
func RefundID(transactionID string) string { return "refund-" + transactionID }

// paymentFlow is the shared shape of pay and refund.
type paymentFlow struct {
	useCase  string
	spanName string
	kind     domstock.Kind
	// transition moves t to the target status; it must fail before any money moves.
	transition func(t *domain.Transaction) error
	settle     func(ctx context.Context, m payment.Method, c payment.Charge) error
	correlate  func(t *domain.Transaction) string
}

type paymentUseCase struct {
	repo      domain.Repository
	methods   *payment.Registry
	publisher AdjustmentPublisher
	flow      paymentFlow
	in        application.Instruments
}

// PayUseCase charges a NEW or DISCOUNTED transaction and then publishes one decrement per line item.
type PayUseCase struct{ paymentUseCase }

// RefundUseCase refunds a PAID transaction and then publishes one increment per line item.
type RefundUseCase struct{ paymentUseCase }

var (
	_ application.UseCase[PaymentInput, *PaymentResult] = (*PayUseCase)(nil)
	_ application.UseCase[PaymentInput, *PaymentResult] = (*RefundUseCase)(nil)
)

func NewPayUseCase(repo domain.Repository, methods *payment.Registry, publisher AdjustmentPublisher, tel observability.Observability) *PayUseCase {
	return &PayUseCase{paymentUseCase{
		repo:      repo,
		methods:   methods,
		publisher: publisher,
		in:        application.NewInstruments(tel, transactionService),
		flow: paymentFlow{
			useCase:    useCasePay,
			spanName:   "PayTransaction",
			kind:       domstock.KindDecrement,
			transition: (*domain.Transaction).MarkPaid,
			settle: func(ctx context.Context, m payment.Method, c payment.Charge) error {
				return m.Charge(ctx, c)
			},
			correlate: func(t *domain.Transaction) string { return t.ID },
		},
	}}
}

func NewRefundUseCase(repo domain.Repository, methods *payment.Registry, publisher AdjustmentPublisher, tel observability.Observability) *RefundUseCase {
	return &RefundUseCase{paymentUseCase{
		repo:      repo,
		methods:   methods,
		publisher: publisher,
		in:        application.NewInstruments(tel, transactionService),
		flow: paymentFlow{
			useCase:    useCaseRefund,
			spanName:   "RefundTransaction",
			kind:       domstock.KindIncrement,
			transition: (*domain.Transaction).MarkRefunded,
			settle: func(ctx context.Context, m payment.Method, c payment.Charge) error {
				return m.Refund(ctx, c)
			},
			correlate: func(t *domain.Transaction) string { return RefundID(t.ID) },
		},
	}}
}

func (uc *paymentUseCase) Execute(ctx context.Context, cmd PaymentInput) (_ *PaymentResult, err error) {
	ctx, run := uc.in.Begin(ctx, uc.flow.useCase, uc.flow.spanName,
		attribute.String("transaction.id", cmd.TransactionID),
	)
	run.Note(observability.F("transaction_id", cmd.TransactionID))
	defer func() { run.End(err) }()

	if cmd.TransactionID == "" {
		run.Fail("TRANSACTION_ID_REQUIRED")
		return nil, newValidation("transaction id is required")
	}

	var methodName string
	updated, uerr := uc.repo.Update(ctx, cmd.TransactionID, func(t *domain.Transaction) error {
		if !t.OwnedBy(cmd.CallerID) {
			return notOwner(cmd.CallerID, t.UserID)
		}
		from := t.Status
		if err := uc.flow.transition(t); err != nil {
			return invalidTransition(err, from)
		}
		method, ok := uc.methods.Resolve(t.PaymentMethod)
		if !ok {
			return apperr.New(apperr.KindPermanent, "no payment method available")
		}
		methodName = method.Name()
		c := payment.Charge{TransactionID: t.ID, Amount: t.Amount, Currency: t.Currency}
		if err := uc.flow.settle(ctx, method, c); err != nil {
			if errors.Is(err, payment.ErrDeclined) {
				return apperr.Wrap(apperr.KindValidation, "payment declined", err)
			}
			return apperr.Transient("payment method "+methodName, err)
		}
		return nil
	})
	if uerr != nil {
		switch apperr.KindOf(uerr) {
		case apperr.KindAuthorization:
			run.Fail("NOT_OWNER")
		case apperr.KindConflict:
			run.Fail("INVALID_STATE")
		case apperr.KindNotFound:
			run.Fail("NOT_FOUND")
		default:
			if errors.Is(uerr, domain.ErrNotFound) {
				run.Fail("NOT_FOUND")
			} else {
				run.Fail("SETTLEMENT_FAILED")
			}
		}
		return nil, wrapRepositoryError(uerr)
	}
	run.Note(observability.F("payment_method", methodName))
	run.Span().SetAttributes(attribute.String("transaction.status", string(updated.Status)))

	res := &PaymentResult{Transaction: updated}
	if uc.publisher == nil {
		return res, nil
	}
	// The transition is committed; publish failures are reported, never rolled back.
	failed := uc.publisher.PublishAll(ctx, uc.flow.kind, updated.LineItems, uc.flow.correlate(updated))
	if len(failed) > 0 {
		run.Status = "ADJUSTMENT_PUBLISH_PARTIAL"
		ids := make([]string, 0, len(failed))
		for _, f := range failed {
			res.UnpublishedItems = append(res.UnpublishedItems, f.Item)
			ids = append(ids, f.Item.ProductID)
		}
		run.Note(observability.F("unpublished_products", ids))
		run.Logger().Warn("stock_adjustment_unpublished",
			observability.F("transaction_id", updated.ID),
			observability.F("kind", string(uc.flow.kind)),
			observability.F("products", ids),
		)
	}
	return res, nil
}
