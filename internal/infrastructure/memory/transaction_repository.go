package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/storefront/internal/domain/transaction"
)

type TransactionRepository struct {
	mu    sync.RWMutex
	txs   map[string]*domain.Transaction
	locks map[string]*sync.Mutex
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		txs:   make(map[string]*domain.Transaction),
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *TransactionRepository) Insert(ctx context.Context, t *domain.Transaction) error {
	_ = ctx
	if t == nil || t.ID == "" {
		return fmt.Errorf("transaction repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.txs[t.ID]; exists {
		return domain.ErrConflict
	}
	r.txs[t.ID] = t.Clone()
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.txs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Transaction, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Transaction, 0)
	for _, t := range r.txs {
		if t.UserID == userID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update serializes read-modify-writes per transaction id. fn runs outside the map lock,
// so a slow update of one transaction never holds up another.
func (r *TransactionRepository) Update(ctx context.Context, id string, fn domain.UpdateFunc) (*domain.Transaction, error) {
	row := r.rowLock(id)
	row.Lock()
	defer row.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	stored, ok := r.txs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	work := stored.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.txs[id] = work
	r.mu.Unlock()
	return work.Clone(), nil
}

func (r *TransactionRepository) rowLock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}
