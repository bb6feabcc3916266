package stock

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("stock: product not found")

// ProductSnapshot is the inventory owner's view of a product at lookup time.
type ProductSnapshot struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Description string          `json:"description"`
	Threshold   int             `json:"threshold"`
	Category    string          `json:"category"`
}

// ProductLookup fetches products from the inventory owner.
// It returns ErrProductNotFound when the product does not exist.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*ProductSnapshot, error)
}
