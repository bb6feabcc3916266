package transaction

import (
	"context"

	"github.com/Zhima-Mochi/storefront/internal/application"
	domain "github.com/Zhima-Mochi/storefront/internal/domain/transaction"
	"github.com/Zhima-Mochi/storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseGet     = "transaction.get"
	useCaseHistory = "transaction.history"
)

type GetInput struct {
	CallerID      int64
	TransactionID string
}

// GetUseCase returns a transaction to its owner.
type GetUseCase struct {
	repo domain.Repository
	in   application.Instruments
}

func NewGetUseCase(repo domain.Repository, tel observability.Observability) *GetUseCase {
	return &GetUseCase{repo: repo, in: application.NewInstruments(tel, transactionService)}
}

func (uc *GetUseCase) Execute(ctx context.Context, cmd GetInput) (_ *domain.Transaction, err error) {
	ctx, run := uc.in.Begin(ctx, useCaseGet, "GetTransaction", attribute.String("transaction.id", cmd.TransactionID))
	defer func() { run.End(err) }()

	if cmd.TransactionID == "" {
		run.Fail("TRANSACTION_ID_REQUIRED")
		return nil, newValidation("transaction id is required")
	}
	t, err := uc.repo.FindByID(ctx, cmd.TransactionID)
	if err != nil {
		run.Fail("LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if !t.OwnedBy(cmd.CallerID) {
		run.Fail("NOT_OWNER")
		return nil, notOwner(cmd.CallerID, t.UserID)
	}
	return t, nil
}

type HistoryInput struct {
	CallerID int64
	UserID   int64
}

// HistoryUseCase lists a user's own transactions.
type HistoryUseCase struct {
	repo domain.Repository
	in   application.Instruments
}

func NewHistoryUseCase(repo domain.Repository, tel observability.Observability) *HistoryUseCase {
	return &HistoryUseCase{repo: repo, in: application.NewInstruments(tel, transactionService)}
}

func (uc *HistoryUseCase) Execute(ctx context.Context, cmd HistoryInput) (_ []*domain.Transaction, err error) {
	ctx, run := uc.in.Begin(ctx, useCaseHistory, "TransactionHistory", attribute.Int64("transaction.user_id", cmd.UserID))
	defer func() { run.End(err) }()

	if cmd.CallerID != cmd.UserID {
		run.Fail("NOT_OWNER")
		return nil, notOwner(cmd.CallerID, cmd.UserID)
	}
	list, err := uc.repo.ListByUser(ctx, cmd.UserID)
	if err != nil {
		run.Fail("LIST_FAILED")
		return nil, wrapRepositoryError(err)
	}
	run.Note(observability.F("count", len(list)))
	return list, nil
}
