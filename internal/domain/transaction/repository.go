package transaction

import "context"

// UpdateFunc mutates a transaction inside an atomic read-modify-write.
// Returning an error aborts the update and leaves the stored copy unchanged.
type UpdateFunc func(t *Transaction) error

type Repository interface {
	Insert(ctx context.Context, t *Transaction) error
	FindByID(ctx context.Context, id string) (*Transaction, error)
	ListByUser(ctx context.Context, userID int64) ([]*Transaction, error)
	Update(ctx context.Context, id string, fn UpdateFunc) (*Transaction, error)
}
