package app

import (
	"context"

	appinv "github.com/Zhima-Mochi/storefront/internal/application/inventory"
	apppromo "github.com/Zhima-Mochi/storefront/internal/application/promotion"
	appstock "github.com/Zhima-Mochi/storefront/internal/application/stock"
	apptx "github.com/Zhima-Mochi/storefront/internal/application/transaction"
	domtx "github.com/Zhima-Mochi/storefront/internal/domain/transaction"
	"github.com/Zhima-Mochi/storefront/internal/pkg/apperr"

	"github.com/shopspring/decimal"
)

// localProducts answers product lookups from the inventory use case in the same process.
type localProducts struct {
	uc *appinv.GetProductUseCase
}

var _ appstock.ProductLookup = localProducts{}

func (l localProducts) GetProduct(ctx context.Context, id string) (*appstock.ProductSnapshot, error) {
	p, err := l.uc.Execute(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, appstock.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &appstock.ProductSnapshot{
		ID:          p.ID.String(),
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Description: p.Description,
		Threshold:   p.LowStockThreshold(),
		Category:    p.Category,
	}, nil
}

// localPromos applies promo codes through the inventory use case in the same process.
type localPromos struct {
	uc *apppromo.ApplyUseCase
}

var _ apptx.PromoApplier = localPromos{}

func (l localPromos) Apply(ctx context.Context, code string, total decimal.Decimal, items []domtx.LineItem) (apptx.PromoResult, error) {
	in := apppromo.ApplyInput{Code: code, Total: total, Items: make([]apppromo.Item, 0, len(items))}
	for _, it := range items {
		in.Items = append(in.Items, apppromo.Item{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	res, err := l.uc.Execute(ctx, in)
	if err != nil {
		return apptx.PromoResult{}, err
	}
	return apptx.PromoResult{
		Outcome:   res.Outcome,
		NewTotal:  res.NewTotal,
		AppliedTo: res.AppliedTo,
		Reason:    res.Reason,
	}, nil
}
