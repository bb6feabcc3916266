package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	domain "github.com/Zhima-Mochi/storefront/internal/domain/promotion"
)

// PromotionRepository indexes promotions by case-insensitive code.
type PromotionRepository struct {
	mu     sync.RWMutex
	byCode map[string]*domain.Promotion
}

func NewPromotionRepository(seed ...*domain.Promotion) *PromotionRepository {
	r := &PromotionRepository{byCode: make(map[string]*domain.Promotion, len(seed))}
	for _, p := range seed {
		if p != nil {
			r.byCode[codeKey(p.Code)] = p.Clone()
		}
	}
	return r
}

func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byCode[codeKey(code)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PromotionRepository) Save(ctx context.Context, p *domain.Promotion) error {
	_ = ctx
	if p == nil {
		return fmt.Errorf("promotion repository: promotion is required")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byCode[codeKey(p.Code)] = p.Clone()
	return nil
}

func codeKey(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }
