package inventory

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/storefront/internal/application"
	dominv "github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseGetProduct = "product.get"

// GetProductUseCase serves product snapshots to the transaction service.
type GetProductUseCase struct {
	products dominv.Repository
	in       application.Instruments
}

func NewGetProductUseCase(products dominv.Repository, tel observability.Observability) *GetProductUseCase {
	return &GetProductUseCase{products: products, in: application.NewInstruments(tel, inventoryService)}
}

func (uc *GetProductUseCase) Execute(ctx context.Context, rawID string) (_ *dominv.Product, err error) {
	ctx, run := uc.in.Begin(ctx, useCaseGetProduct, "GetProduct", attribute.String("product.id", rawID))
	defer func() { run.End(err) }()

	id, perr := dominv.ParseProductID(rawID)
	if perr != nil {
		run.Fail("INVALID_PRODUCT_ID")
		return nil, apperr.Wrap(apperr.KindValidation, "invalid product id", perr)
	}
	p, ferr := uc.products.FindByID(ctx, id)
	switch {
	case errors.Is(ferr, dominv.ErrNotFound):
		run.Fail("NOT_FOUND")
		return nil, apperr.Wrap(apperr.KindNotFound, "product "+rawID+" not found", ferr)
	case ferr != nil:
		run.Fail("LOOKUP_FAILED")
		return nil, apperr.Transient("product repository", ferr)
	}
	return p, nil
}
