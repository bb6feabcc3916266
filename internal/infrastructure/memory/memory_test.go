package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	"github.com/Zhima-Mochi/storefront/internal/domain/promotion"
	"github.com/Zhima-Mochi/storefront/internal/domain/transaction"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductUpdateIsAtomic(t *testing.T) {
	p := &inventory.Product{ID: uuid.New(), Name: "Mug", Quantity: 100}
	repo := NewProductRepository(p)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Update(ctx, p.ID, func(p *inventory.Product) error { return p.Decrement(1) })
		}()
	}
	wg.Wait()

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)

	_, err = repo.Update(ctx, p.ID, func(p *inventory.Product) error { return p.Decrement(1) })
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	_, err = repo.Update(ctx, uuid.New(), func(*inventory.Product) error { return nil })
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestTransactionUpdateAbortKeepsStoredCopy(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()
	tx, err := transaction.New("t1", 1, 5, decimal.NewFromInt(10), "USD", "card", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, tx))
	assert.ErrorIs(t, repo.Insert(ctx, tx), transaction.ErrConflict)

	_, err = repo.Update(ctx, "t1", func(t *transaction.Transaction) error {
		_ = t.MarkPaid()
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := repo.FindByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusNew, got.Status)

	list, err := repo.ListByUser(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTransactionUpdatesLockPerID(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()
	for _, id := range []string{"t1", "t2"} {
		tx, err := transaction.New(id, 1, 5, decimal.NewFromInt(10), "USD", "card", nil)
		require.NoError(t, err)
		require.NoError(t, repo.Insert(ctx, tx))
	}

	entered, release := make(chan struct{}), make(chan struct{})
	slow := make(chan error, 1)
	go func() {
		_, err := repo.Update(ctx, "t1", func(*transaction.Transaction) error {
			close(entered)
			<-release
			return nil
		})
		slow <- err
	}()
	<-entered

	_, err := repo.Update(ctx, "t2", func(t *transaction.Transaction) error { return t.MarkPaid() })
	require.NoError(t, err, "t2 must not wait for t1")
	close(release)
	require.NoError(t, <-slow)

	var wg sync.WaitGroup
	calls := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Update(ctx, "t1", func(*transaction.Transaction) error {
				calls++
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, calls)
}

func TestPromotionLookupIgnoresCase(t *testing.T) {
	repo := NewPromotionRepository(&promotion.Promotion{Code: "RAMADAN20", Type: promotion.TypeCartPromoCode})
	p, err := repo.FindByCode(context.Background(), " ramadan20 ")
	require.NoError(t, err)
	assert.Equal(t, "RAMADAN20", p.Code)

	_, err = repo.FindByCode(context.Background(), "nope")
	assert.ErrorIs(t, err, promotion.ErrNotFound)
}

func TestLedgerClaimReleaseExpire(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(time.Minute, 2)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	ok, err := l.Claim(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = l.Claim(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "a"))
	ok, _ = l.Claim(ctx, "a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = l.Claim(ctx, "a")
	assert.True(t, ok, "expired claims can be claimed again")

	_, _ = l.Claim(ctx, "b")
	_, _ = l.Claim(ctx, "c")
	assert.Equal(t, 2, l.Len())
	ok, _ = l.Claim(ctx, "b")
	assert.False(t, ok)
}
