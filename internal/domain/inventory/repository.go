package inventory

import (
	"context"

	"github.com/google/uuid"
)

// UpdateFunc mutates a product inside an atomic read-modify-write.
type UpdateFunc func(p *Product) error

type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// Update runs fn against the locked product and persists the result when fn returns nil.
	Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*Product, error)
	Save(ctx context.Context, p *Product) error
}
