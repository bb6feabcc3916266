package promotion

import "context"

type Repository interface {
	FindByCode(ctx context.Context, code string) (*Promotion, error)
	Save(ctx context.Context, p *Promotion) error
}
