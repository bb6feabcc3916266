package transaction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/application"
	domain "github.com/Zhima-Mochi/storefront/internal/domain/transaction"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/pkg/apperr"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	transactionService  = "transaction-service"
	useCaseCreate       = "transaction.create"
	promoPeer           = "inventory"
	promoEndpoint       = "POST /promotions/apply"
	defaultPromoTimeout = 2 * time.Second
)

type CreateInput struct {
	CallerID      int64
	OrderID       int64
	UserID        int64
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	PromoCode     string
	LineItems     []domain.LineItem
}

type CreateResult struct {
	Transaction *domain.Transaction
	// PromoOutcome is empty when no promo code was supplied.
	PromoOutcome string
	PromoReason  string
}

// CreateUseCase validates stock, applies an optional promotion and stores a NEW or DISCOUNTED transaction.
type CreateUseCase struct {
	repo      domain.Repository
	ids       IDGenerator
	validator StockValidator
	promos    PromoApplier
	timeout   time.Duration
	in        application.Instruments
}

func NewCreateUseCase(
	repo domain.Repository,
	ids IDGenerator,
	validator StockValidator,
	promos PromoApplier,
	promoTimeout time.Duration,
	tel observability.Observability,
) *CreateUseCase {
	if promoTimeout <= 0 {
		promoTimeout = defaultPromoTimeout
	}
	return &CreateUseCase{
		repo:      repo,
		ids:       ids,
		validator: validator,
		promos:    promos,
		timeout:   promoTimeout,
		in:        application.NewInstruments(tel, transactionService),
	}
}

var _ application.UseCase[CreateInput, *CreateResult] = (*CreateUseCase)(nil)

func (uc *CreateUseCase) Execute(ctx context.Context, cmd CreateInput) (_ *CreateResult, err error) {
	ctx, run := uc.in.Begin(ctx, useCaseCreate, "CreateTransaction",
		attribute.Int64("transaction.user_id", cmd.UserID),
		attribute.Int("transaction.line_items", len(cmd.LineItems)),
	)
	defer func() { run.End(err) }()

	if cmd.CallerID != cmd.UserID {
		run.Fail("NOT_OWNER")
		return nil, notOwner(cmd.CallerID, cmd.UserID)
	}
	if err := ctx.Err(); err != nil {
		run.Fail("CONTEXT_CANCELED")
		return nil, err
	}

	tx, derr := domain.New(uc.ids.NewID(), cmd.OrderID, cmd.UserID, cmd.Amount,
		strings.ToUpper(strings.TrimSpace(cmd.Currency)), cmd.PaymentMethod, cmd.LineItems)
	if derr != nil {
		run.Fail("INVALID_INPUT")
		return nil, apperr.Wrap(apperr.KindValidation, "invalid transaction", derr)
	}
	run.Note(observability.F("transaction_id", tx.ID))

	if len(tx.LineItems) > 0 && uc.validator != nil {
		if reasons := uc.validator.Validate(ctx, tx.LineItems); len(reasons) > 0 {
			run.Fail("INSUFFICIENT_STOCK")
			run.Note(observability.F("reasons", reasons))
			return nil, apperr.InsufficientStock(reasons)
		}
	}

	res := &CreateResult{Transaction: tx}
	if code := strings.TrimSpace(cmd.PromoCode); code != "" {
		res.PromoOutcome, res.PromoReason = uc.applyPromo(ctx, run, tx, code)
	}

	if err := uc.repo.Insert(ctx, tx); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}

	run.Span().SetAttributes(
		attribute.String("transaction.id", tx.ID),
		attribute.String("transaction.status", string(tx.Status)),
	)
	res.Transaction = tx.Clone()
	return res, nil
}

// applyPromo leaves tx NEW unless the promotion was applied.
func (uc *CreateUseCase) applyPromo(ctx context.Context, run *application.Run, tx *domain.Transaction, code string) (string, string) {
	if uc.promos == nil {
		return PromoInapplicable, "promotions are not available"
	}
	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	start := time.Now()
	pr, err := uc.promos.Apply(callCtx, code, tx.Amount, tx.LineItems)
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		uc.in.ObserveExternal(promoPeer, promoEndpoint, outcome, start)
		run.Note(observability.F("promo_error", err.Error()))
		run.Status = "PROMO_UNAVAILABLE"
		return PromoInapplicable, "promotion service unavailable: " + err.Error()
	}
	uc.in.ObserveExternal(promoPeer, promoEndpoint, "success", start)
	run.Note(observability.F("promo_outcome", pr.Outcome))

	if pr.Outcome != PromoApplied {
		run.Status = "PROMO_" + strings.ToUpper(pr.Outcome)
		return pr.Outcome, pr.Reason
	}
	if err := tx.ApplyDiscount(pr.NewTotal, code); err != nil {
		run.Status = "PROMO_REJECTED"
		return PromoInapplicable, err.Error()
	}
	return PromoApplied, ""
}
