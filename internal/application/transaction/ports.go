package transaction

import (
	"context"

	appstock "github.com/Zhima-Mochi/storefront/internal/application/stock"
	domstock "github.com/Zhima-Mochi/storefront/internal/domain/stock"
	domain "github.com/Zhima-Mochi/storefront/internal/domain/transaction"

	"github.com/shopspring/decimal"
)

type IDGenerator interface {
	NewID() string
}

type StockValidator interface {
	Validate(ctx context.Context, items []domain.LineItem) []string
}

type AdjustmentPublisher interface {
	PublishAll(ctx context.Context, kind domstock.Kind, items []domain.LineItem, correlationID string) []appstock.FailedItem
}

// Promotion outcomes reported by the inventory service.
const (
	PromoApplied      = "applied"
	PromoNotFound     = "not_found"
	PromoInapplicable = "inapplicable"
)

type PromoResult struct {
	Outcome   string
	NewTotal  decimal.Decimal
	AppliedTo []string
	Reason    string
}

// PromoApplier asks the pricing owner to apply a promo code to a cart.
type PromoApplier interface {
	Apply(ctx context.Context, code string, total decimal.Decimal, items []domain.LineItem) (PromoResult, error)
}
