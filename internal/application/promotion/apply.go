package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/application"
	dominv "github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	dompromo "github.com/Zhima-Mochi/storefront/internal/domain/promotion"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/pkg/apperr"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService = "inventory-service"
	useCaseApply     = "promotion.apply"
)

const (
	OutcomeApplied      = "applied"
	OutcomeNotFound     = "not_found"
	OutcomeInapplicable = "inapplicable"
)

type Item struct {
	ProductID string
	Quantity  int
}

type ApplyInput struct {
	Code  string
	Total decimal.Decimal
	Items []Item
}

type ApplyResult struct {
	Outcome   string
	NewTotal  decimal.Decimal
	AppliedTo []string
	Reason    string
}

// ApplyUseCase prices a cart and resolves a promo code against it.
type ApplyUseCase struct {
	promos   dompromo.Repository
	products dominv.Repository
	resolver *dompromo.Resolver
	now      func() time.Time
	in       application.Instruments
}

func NewApplyUseCase(promos dompromo.Repository, products dominv.Repository, resolver *dompromo.Resolver, tel observability.Observability) *ApplyUseCase {
	if resolver == nil {
		resolver = dompromo.NewResolver(dompromo.DefaultStrategies())
	}
	return &ApplyUseCase{
		promos:   promos,
		products: products,
		resolver: resolver,
		now:      time.Now,
		in:       application.NewInstruments(tel, inventoryService),
	}
}

var _ application.UseCase[ApplyInput, *ApplyResult] = (*ApplyUseCase)(nil)

func (uc *ApplyUseCase) Execute(ctx context.Context, cmd ApplyInput) (_ *ApplyResult, err error) {
	code := strings.TrimSpace(cmd.Code)
	ctx, run := uc.in.Begin(ctx, useCaseApply, "ApplyPromotion",
		attribute.String("promotion.code", code),
		attribute.Int("promotion.items", len(cmd.Items)),
	)
	res := &ApplyResult{}
	defer func() {
		run.Note(observability.F("promo_outcome", res.Outcome))
		run.End(err)
	}()

	if code == "" {
		run.Fail("CODE_REQUIRED")
		return nil, apperr.Validation("promo code is required")
	}
	if cmd.Total.IsNegative() {
		run.Fail("TOTAL_INVALID")
		return nil, apperr.Validation("total must be zero or greater")
	}

	promo, ferr := uc.promos.FindByCode(ctx, code)
	switch {
	case errors.Is(ferr, dompromo.ErrNotFound):
		res.Outcome, res.Reason = OutcomeNotFound, "Promo code not found"
		run.Status = "NOT_FOUND"
		return res, nil
	case ferr != nil:
		run.Fail("LOOKUP_FAILED")
		return nil, apperr.Transient("promotion repository", ferr)
	}

	cart, reason, perr := uc.price(ctx, cmd)
	if perr != nil {
		run.Fail("PRICING_FAILED")
		return nil, perr
	}
	if reason != "" {
		res.Outcome, res.Reason = OutcomeInapplicable, reason
		run.Status = "INAPPLICABLE"
		return res, nil
	}

	out, rerr := uc.resolver.Resolve(promo, cart, uc.now())
	if rerr != nil {
		res.Outcome, res.Reason = OutcomeInapplicable, inapplicableReason(rerr)
		run.Status = "INAPPLICABLE"
		return res, nil
	}

	res.Outcome = OutcomeApplied
	res.NewTotal = out.NewTotal
	for _, id := range out.AppliedTo {
		res.AppliedTo = append(res.AppliedTo, id.String())
	}
	run.Span().SetAttributes(attribute.String("promotion.new_total", out.NewTotal.StringFixed(2)))
	return res, nil
}

// price turns requested items into priced cart lines. A non-empty reason means the cart cannot be priced.
func (uc *ApplyUseCase) price(ctx context.Context, cmd ApplyInput) (dompromo.Cart, string, error) {
	cart := dompromo.Cart{Total: cmd.Total}
	for _, it := range cmd.Items {
		if it.Quantity <= 0 {
			return cart, fmt.Sprintf("Invalid quantity for product %s", it.ProductID), nil
		}
		id, err := dominv.ParseProductID(it.ProductID)
		if err != nil {
			return cart, fmt.Sprintf("Invalid product ID format: %s", it.ProductID), nil
		}
		p, err := uc.products.FindByID(ctx, id)
		switch {
		case errors.Is(err, dominv.ErrNotFound):
			return cart, fmt.Sprintf("Product ID %s not found", it.ProductID), nil
		case err != nil:
			return cart, "", apperr.Transient("product repository", err)
		}
		cart.Items = append(cart.Items, dompromo.CartItem{
			ProductID: id,
			Price:     p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	return cart, "", nil
}

func inapplicableReason(err error) string {
	switch {
	case errors.Is(err, dompromo.ErrInactive):
		return "Promotion is not active"
	case errors.Is(err, dompromo.ErrOutsideWindow):
		return "Promotion is outside valid date range"
	case errors.Is(err, dompromo.ErrEmptyCart):
		return "Product list is empty. Cannot apply promotion."
	case errors.Is(err, dompromo.ErrNoEligibleProducts):
		return "No products in list are eligible for this promo code"
	case errors.Is(err, dompromo.ErrUnsupportedType):
		return "Unsupported promotion type"
	}
	return err.Error()
}
