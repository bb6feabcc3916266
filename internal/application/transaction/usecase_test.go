package transaction

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	appstock "github.com/Zhima-Mochi/storefront/internal/application/stock"
	"github.com/Zhima-Mochi/storefront/internal/domain/messaging"
	"github.com/Zhima-Mochi/storefront/internal/domain/payment"
	domstock "github.com/Zhima-Mochi/storefront/internal/domain/stock"
	domain "github.com/Zhima-Mochi/storefront/internal/domain/transaction"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/storefront/internal/observability/observabilitytest"
	"github.com/Zhima-Mochi/storefront/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqIDs struct{ n int32 }

func (s *seqIDs) NewID() string { return "tx-" + strconv.Itoa(int(atomic.AddInt32(&s.n, 1))) }

type validatorFunc func(ctx context.Context, items []domain.LineItem) []string

func (f validatorFunc) Validate(ctx context.Context, items []domain.LineItem) []string {
	return f(ctx, items)
}

type promoFunc func(ctx context.Context, code string, total decimal.Decimal, items []domain.LineItem) (PromoResult, error)

func (f promoFunc) Apply(ctx context.Context, code string, total decimal.Decimal, items []domain.LineItem) (PromoResult, error) {
	return f(ctx, code, total, items)
}

type spyMethod struct {
	name             string
	charges, refunds int32
	onCharge         func()
}

func (m *spyMethod) Name() string { return m.name }
func (m *spyMethod) Charge(context.Context, payment.Charge) error {
	atomic.AddInt32(&m.charges, 1)
	if m.onCharge != nil {
		m.onCharge()
	}
	return nil
}
func (m *spyMethod) Refund(context.Context, payment.Charge) error {
	atomic.AddInt32(&m.refunds, 1)
	return nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls []publishCall
	fail  bool
}

type publishCall struct {
	kind          domstock.Kind
	items         []domain.LineItem
	correlationID string
}

func (p *recordingPublisher) PublishAll(_ context.Context, kind domstock.Kind, items []domain.LineItem, correlationID string) []appstock.FailedItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{kind: kind, items: items, correlationID: correlationID})
	if !p.fail {
		return nil
	}
	out := make([]appstock.FailedItem, 0, len(items))
	for _, it := range items {
		out = append(out, appstock.FailedItem{Item: it, Err: errors.New("broker down")})
	}
	return out
}

type fixture struct {
	repo   *memory.TransactionRepository
	card   *spyMethod
	pub    *recordingPublisher
	create *CreateUseCase
	pay    *PayUseCase
	refund *RefundUseCase
	get    *GetUseCase
	hist   *HistoryUseCase
	rec    *observabilitytest.Recorder
}

func newFixture(validator StockValidator, promos PromoApplier) *fixture {
	f := &fixture{
		repo: memory.NewTransactionRepository(),
		card: &spyMethod{name: payment.MethodCard},
		pub:  &recordingPublisher{},
		rec:  observabilitytest.New(),
	}
	methods := payment.NewRegistry(f.card, payment.Wallet{})
	f.create = NewCreateUseCase(f.repo, &seqIDs{}, validator, promos, 0, f.rec)
	f.pay = NewPayUseCase(f.repo, methods, f.pub, f.rec)
	f.refund = NewRefundUseCase(f.repo, methods, f.pub, f.rec)
	f.get = NewGetUseCase(f.repo, f.rec)
	f.hist = NewHistoryUseCase(f.repo, f.rec)
	return f
}

var p1, p2 = uuid.NewString(), uuid.NewString()

func createInput() CreateInput {
	return CreateInput{
		CallerID:      1,
		OrderID:       10,
		UserID:        1,
		Amount:        decimal.RequireFromString("100.00"),
		Currency:      "usd",
		PaymentMethod: "bitcoin",
		LineItems:     []domain.LineItem{{ProductID: p1, Quantity: 2}, {ProductID: p2, Quantity: 1}},
	}
}

func (f *fixture) mustCreate(t *testing.T) *domain.Transaction {
	t.Helper()
	res, err := f.create.Execute(context.Background(), createInput())
	require.NoError(t, err)
	return res.Transaction
}

func TestCreateNew(t *testing.T) {
	f := newFixture(nil, nil)
	tx := f.mustCreate(t)

	assert.Equal(t, domain.StatusNew, tx.Status)
	assert.Equal(t, "USD", tx.Currency)
	stored, err := f.repo.FindByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.LineItems, stored.LineItems)
	assert.Len(t, f.rec.Entries("use_case_done"), 1)
}

func TestCreateRejectsForeignCaller(t *testing.T) {
	f := newFixture(nil, nil)
	in := createInput()
	in.CallerID = 2

	_, err := f.create.Execute(context.Background(), in)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

func TestCreateRejectsBadShape(t *testing.T) {
	f := newFixture(nil, nil)
	in := createInput()
	in.Amount = decimal.NewFromInt(-5)

	_, err := f.create.Execute(context.Background(), in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreateInsufficientStock(t *testing.T) {
	f := newFixture(validatorFunc(func(context.Context, []domain.LineItem) []string {
		return []string{"Mug (only 1 available)"}
	}), nil)

	_, err := f.create.Execute(context.Background(), createInput())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
	assert.Equal(t, []string{"Mug (only 1 available)"}, apperr.ReasonsOf(err))

	list, _ := f.repo.ListByUser(context.Background(), 1)
	assert.Empty(t, list)
}

func TestCreateAppliesPromotion(t *testing.T) {
	f := newFixture(nil, promoFunc(func(_ context.Context, code string, total decimal.Decimal, _ []domain.LineItem) (PromoResult, error) {
		assert.Equal(t, "RAMADAN20", code)
		return PromoResult{Outcome: PromoApplied, NewTotal: total.Mul(decimal.RequireFromString("0.8")).Round(2)}, nil
	}))
	in := createInput()
	in.PromoCode = "RAMADAN20"

	res, err := f.create.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, PromoApplied, res.PromoOutcome)
	assert.Equal(t, domain.StatusDiscounted, res.Transaction.Status)
	assert.Equal(t, "80.00", res.Transaction.Amount.StringFixed(2))
	assert.Equal(t, "100.00", res.Transaction.OriginalAmount.StringFixed(2))
}

func TestCreateKeepsNewWhenPromoFails(t *testing.T) {
	cases := map[string]promoFunc{
		"not found": func(context.Context, string, decimal.Decimal, []domain.LineItem) (PromoResult, error) {
			return PromoResult{Outcome: PromoNotFound, Reason: "Promo code not found"}, nil
		},
		"inapplicable": func(context.Context, string, decimal.Decimal, []domain.LineItem) (PromoResult, error) {
			return PromoResult{Outcome: PromoInapplicable, Reason: "Promotion is not active"}, nil
		},
		"transport": func(context.Context, string, decimal.Decimal, []domain.LineItem) (PromoResult, error) {
			return PromoResult{}, errors.New("dial tcp: refused")
		},
		"raises total": func(context.Context, string, decimal.Decimal, []domain.LineItem) (PromoResult, error) {
			return PromoResult{Outcome: PromoApplied, NewTotal: decimal.NewFromInt(500)}, nil
		},
	}
	for name, promo := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(nil, promo)
			in := createInput()
			in.PromoCode = "X"

			res, err := f.create.Execute(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusNew, res.Transaction.Status)
			assert.NotEqual(t, PromoApplied, res.PromoOutcome)
			assert.NotEmpty(t, res.PromoReason)
		})
	}
}

func TestPayPublishesDecrements(t *testing.T) {
	f := newFixture(nil, nil)
	tx := f.mustCreate(t)

	res, err := f.pay.Execute(context.Background(), PaymentInput{CallerID: 1, TransactionID: tx.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, res.Transaction.Status)
	assert.Equal(t, int32(1), f.card.charges, "unknown method falls back to card")

	require.Len(t, f.pub.calls, 1)
	assert.Equal(t, domstock.KindDecrement, f.pub.calls[0].kind)
	assert.Equal(t, tx.ID, f.pub.calls[0].correlationID)
	assert.Equal(t, tx.LineItems, f.pub.calls[0].items)
}

func TestPayOnPaidConflictsWithoutCharging(t *testing.T) {
	f := newFixture(nil, nil)
	tx := f.mustCreate(t)
	_, err := f.pay.Execute(context.Background(), PaymentInput{CallerID: 1, TransactionID: tx.ID})
	require.NoError(t, err)

	_, err = f.pay.Execute(context.Background(), PaymentInput{CallerID: 1, TransactionID: tx.ID})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	assert.Equal(t, int32(1), f.card.charges)
	assert.Len(t, f.pub.calls, 1)
}

func TestConcurrentPayChargesOnce(t *testing.T) {
	f := newFixture(nil, nil)
	tx := f.mustCreate(t)

	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.pay.Execute(context.Background(), PaymentInput{CallerID: 1, TransactionID: tx.ID}); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(1), f.card.charges)
}

func TestPayByForeignCallerChangesNothing(t *testing.T) {
	f := newFixture(nil, nil)
	tx := f.mustCreate(t)

	_, err := f.pay.Execute(context.Background(), PaymentInput{CallerID: 2, TransactionID: tx.ID})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	stored, _ := f.repo.FindByID(context.Background(), tx.ID)
	assert.Equal(t, domain.StatusNew, stored.Status)
	assert.Zero(t, f.card.charges)
	assert.Empty(t, f.pub.calls)
}

func TestPayUnknownTransaction(t *testing.T) {
	f := newFixture(nil, nil)
	_, err := f.pay.Execute(context.Background(), PaymentInput{CallerID: 1, TransactionID: "missing"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

// closingBroker rejects messages whose context is already done.
type closingBroker struct {
	mu   sync.Mutex
	sent []messaging.Message
}

func (b *closingBroker) Publish(ctx context.Context, m messaging.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, m)
	return nil
}

func TestPayPublishesAfterCallerDisconnects(t *testing.T) {
	f := newFixture(nil, nil)
	broker := &closingBroker{}
	methods := payment.NewRegistry(f.card, payment.Wallet{})
	pay := NewPayUseCase(f.repo, methods, appstock.NewPublisher(broker, nil, 0), f.rec)
	tx := f.mustCreate(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// The client goes away while the transition is being committed.
	f.card.onCharge = cancel

	res, err := pay.Execute(ctx, PaymentInput{CallerID: 1, TransactionID: tx.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, res.Transaction.Status)
	assert.Empty(t, res.UnpublishedItems)
	assert.Len(t, broker.sent, 2)
}

func TestPublishFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(nil, nil)
	f.pub.fail = true
	tx := f.mustCreate(t)

	res, err := f.pay.Execute(context.Background(), PaymentInput{CallerID: 1, TransactionID: tx.ID})
	require.NoError(t, err)
	assert.Len(t, res.UnpublishedItems, 2)

	stored, _ := f.repo.FindByID(context.Background(), tx.ID)
	assert.Equal(t, domain.StatusPaid, stored.Status)
	assert.Len(t, f.rec.Entries("stock_adjustment_unpublished"), 1)
}

func TestRefund(t *testing.T) {
	f := newFixture(nil, nil)
	tx := f.mustCreate(t)

	_, err := f.refund.Execute(context.Background(), PaymentInput{CallerID: 1, TransactionID: tx.ID})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "refund of NEW")

	_, err = f.pay.Execute(context.Background(), PaymentInput{CallerID: 1, TransactionID: tx.ID})
	require.NoError(t, err)

	_, err = f.refund.Execute(context.Background(), PaymentInput{CallerID: 2, TransactionID: tx.ID})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	res, err := f.refund.Execute(context.Background(), PaymentInput{CallerID: 1, TransactionID: tx.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, res.Transaction.Status)
	assert.Equal(t, int32(1), f.card.refunds)

	require.Len(t, f.pub.calls, 2)
	assert.Equal(t, domstock.KindIncrement, f.pub.calls[1].kind)
	assert.Equal(t, RefundID(tx.ID), f.pub.calls[1].correlationID)

	_, err = f.refund.Execute(context.Background(), PaymentInput{CallerID: 1, TransactionID: tx.ID})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "refund of REFUNDED")
	assert.Equal(t, int32(1), f.card.refunds)
}

func TestGetAndHistoryAreOwnerOnly(t *testing.T) {
	f := newFixture(nil, nil)
	tx := f.mustCreate(t)
	ctx := context.Background()

	got, err := f.get.Execute(ctx, GetInput{CallerID: 1, TransactionID: tx.ID})
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)

	_, err = f.get.Execute(ctx, GetInput{CallerID: 2, TransactionID: tx.ID})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	list, err := f.hist.Execute(ctx, HistoryInput{CallerID: 1, UserID: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.hist.Execute(ctx, HistoryInput{CallerID: 2, UserID: 1})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}
