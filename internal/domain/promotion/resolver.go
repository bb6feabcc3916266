package promotion

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one priced line: Price is the line total (unit price times quantity).
type CartItem struct {
	ProductID uuid.UUID
	Price     decimal.Decimal
}

type Cart struct {
	Items []CartItem
	// Total overrides the sum of item prices for cart-wide promotions when positive.
	Total decimal.Decimal
}

func (c Cart) total() decimal.Decimal {
	if c.Total.IsPositive() {
		return c.Total
	}
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.Price)
	}
	return sum
}

type Result struct {
	NewTotal decimal.Decimal
	// Items holds each line after the discount; ineligible lines keep their price.
	Items     []CartItem
	AppliedTo []uuid.UUID
}

type Resolver struct {
	strategies map[Type]StrategyFactory
}

func NewResolver(strategies map[Type]StrategyFactory) *Resolver {
	m := make(map[Type]StrategyFactory, len(strategies))
	for k, v := range strategies {
		if v != nil {
			m[k] = v
		}
	}
	return &Resolver{strategies: m}
}

// Resolve checks that p can be used today and applies it to cart.
func (r *Resolver) Resolve(p *Promotion, cart Cart, today time.Time) (Result, error) {
	if p == nil {
		return Result{}, ErrNotFound
	}
	if !p.Active {
		return Result{}, ErrInactive
	}
	if !p.InWindow(today) {
		return Result{}, ErrOutsideWindow
	}
	factory, ok := r.strategies[p.Type]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedType, p.Type)
	}
	strategy := factory(p.Value)

	if p.Type == TypeItemDiscount {
		return resolveItems(p, strategy, cart)
	}

	total := cart.total()
	if !total.IsPositive() {
		return Result{}, ErrEmptyCart
	}
	return Result{
		NewTotal: strategy.Apply(total),
		Items:    append([]CartItem(nil), cart.Items...),
	}, nil
}

func resolveItems(p *Promotion, strategy Strategy, cart Cart) (Result, error) {
	if len(cart.Items) == 0 {
		return Result{}, ErrEmptyCart
	}
	res := Result{Items: make([]CartItem, 0, len(cart.Items))}
	sum := decimal.Zero
	for _, it := range cart.Items {
		if !p.AppliesTo(it.ProductID) {
			res.Items = append(res.Items, it)
			sum = sum.Add(it.Price)
			continue
		}
		discounted := strategy.Apply(it.Price)
		sum = sum.Add(discounted)
		res.Items = append(res.Items, CartItem{ProductID: it.ProductID, Price: discounted})
		res.AppliedTo = append(res.AppliedTo, it.ProductID)
	}
	if len(res.AppliedTo) == 0 {
		return Result{}, ErrNoEligibleProducts
	}
	// The item lines define the total here; Cart.Total is ignored.
	res.NewTotal = clampRound(sum)
	return res, nil
}
