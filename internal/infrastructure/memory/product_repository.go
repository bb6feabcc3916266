package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/storefront/internal/domain/inventory"

	"github.com/google/uuid"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*domain.Product
}

func NewProductRepository(seed ...*domain.Product) *ProductRepository {
	r := &ProductRepository{products: make(map[uuid.UUID]*domain.Product, len(seed))}
	for _, p := range seed {
		if p != nil {
			r.products[p.ID] = p.Clone()
		}
	}
	return r
}

func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *ProductRepository) Update(ctx context.Context, id uuid.UUID, fn domain.UpdateFunc) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	work := stored.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	r.products[id] = work
	return work.Clone(), nil
}

func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil || p.ID == uuid.Nil {
		return fmt.Errorf("product repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[p.ID] = p.Clone()
	return nil
}
