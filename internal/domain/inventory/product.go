package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultLowStockThreshold = 10

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrInvalidProductID  = errors.New("inventory: product id must be a UUID")
)

type Product struct {
	ID          uuid.UUID
	Name        string
	Price       decimal.Decimal
	Quantity    int
	Description string
	// Threshold is the low-stock level; zero means DefaultLowStockThreshold.
	Threshold int
	Category  string
	UpdatedAt time.Time
}

// ParseProductID parses s as a product identity.
func ParseProductID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("%w: empty", ErrInvalidProductID)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidProductID, s)
	}
	return id, nil
}

func (p *Product) LowStockThreshold() int {
	if p.Threshold <= 0 {
		return DefaultLowStockThreshold
	}
	return p.Threshold
}

// IsLowStock reports whether the current quantity is at or below the threshold.
func (p *Product) IsLowStock() bool {
	return p.Quantity <= p.LowStockThreshold()
}

// Decrement removes n units. The product is unchanged when stock would go negative.
func (p *Product) Decrement(n int) error {
	if n <= 0 {
		return ErrInvalidQuantity
	}
	if n > p.Quantity {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientStock, p.Quantity, n)
	}
	p.Quantity -= n
	p.touch()
	return nil
}

func (p *Product) Increment(n int) error {
	if n <= 0 {
		return ErrInvalidQuantity
	}
	p.Quantity += n
	p.touch()
	return nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}
