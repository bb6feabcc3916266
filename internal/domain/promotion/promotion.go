package promotion

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeCartPromoCode Type = "CART_PROMOCODE"
	TypeItemDiscount  Type = "ITEM_DISCOUNT"
	TypeFixedAmount   Type = "FIXED_AMOUNT"
)

var (
	ErrNotFound           = errors.New("promotion: not found")
	ErrInvalid            = errors.New("promotion: invalid")
	ErrInactive           = errors.New("promotion: not active")
	ErrOutsideWindow      = errors.New("promotion: outside valid date range")
	ErrEmptyCart          = errors.New("promotion: cart is empty")
	ErrNoEligibleProducts = errors.New("promotion: no products in cart are eligible")
	ErrUnsupportedType    = errors.New("promotion: unsupported type")
)

var hundred = decimal.NewFromInt(100)

type Promotion struct {
	ID   uuid.UUID
	Code string
	Type Type
	// Value is a percentage for CART_PROMOCODE and ITEM_DISCOUNT, an amount for FIXED_AMOUNT.
	Value decimal.Decimal
	// StartDate and EndDate bound the inclusive validity window by calendar day (UTC).
	StartDate time.Time
	EndDate   time.Time
	Active    bool
	// ApplicableProductIDs is only meaningful for ITEM_DISCOUNT.
	ApplicableProductIDs []uuid.UUID
}

func (p *Promotion) Validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalid)
	}
	if p.Value.IsNegative() {
		return fmt.Errorf("%w: discount value must be zero or greater", ErrInvalid)
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalid)
	}
	switch p.Type {
	case TypeCartPromoCode:
		if len(p.ApplicableProductIDs) > 0 {
			return fmt.Errorf("%w: CART_PROMOCODE promotions must not have applicable product ids", ErrInvalid)
		}
	case TypeItemDiscount:
		if len(p.ApplicableProductIDs) == 0 {
			return fmt.Errorf("%w: ITEM_DISCOUNT promotions need applicable product ids", ErrInvalid)
		}
	case TypeFixedAmount:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedType, p.Type)
	}
	if p.Type != TypeFixedAmount && p.Value.GreaterThan(hundred) {
		return fmt.Errorf("%w: percentage above 100", ErrInvalid)
	}
	return nil
}

// InWindow reports whether today falls within [StartDate, EndDate], compared by day.
func (p *Promotion) InWindow(today time.Time) bool {
	d := Day(today)
	return !d.Before(Day(p.StartDate)) && !d.After(Day(p.EndDate))
}

func (p *Promotion) AppliesTo(id uuid.UUID) bool {
	for _, a := range p.ApplicableProductIDs {
		if a == id {
			return true
		}
	}
	return false
}

func (p *Promotion) Clone() *Promotion {
	if p == nil {
		return nil
	}
	c := *p
	c.ApplicableProductIDs = append([]uuid.UUID(nil), p.ApplicableProductIDs...)
	return &c
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
