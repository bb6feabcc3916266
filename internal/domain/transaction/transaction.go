package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("transaction: not found")
	ErrConflict               = errors.New("transaction: conflict")
	ErrInvalidStateTransition = errors.New("transaction: invalid state transition")
	ErrInvalidAmount          = errors.New("transaction: amount must be zero or greater")
	ErrInvalidCurrency        = errors.New("transaction: currency must be a 3-letter ISO-4217 code")
	ErrInvalidUser            = errors.New("transaction: user id must be positive")
	ErrInvalidDiscount        = errors.New("transaction: discounted amount must be between zero and the current amount")
)

type Status string

const (
	StatusNew        Status = "NEW"
	StatusDiscounted Status = "DISCOUNTED"
	StatusPaid       Status = "PAID"
	StatusRefunded   Status = "REFUNDED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusDiscounted, StatusPaid, StatusRefunded:
		return true
	}
	return false
}

type Transaction struct {
	ID      string
	OrderID int64
	UserID  int64
	// Amount is what will be charged; OriginalAmount keeps the pre-discount figure.
	Amount         decimal.Decimal
	OriginalAmount decimal.Decimal
	Currency       string
	Status         Status
	PaymentMethod  string
	PromoCode      string
	LineItems      []LineItem
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// New builds a NEW transaction. Line items are merged by product id.
func New(id string, orderID, userID int64, amount decimal.Decimal, currency, method string, items []LineItem) (*Transaction, error) {
	if id == "" {
		return nil, errors.New("transaction: id is required")
	}
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if !validCurrency(currency) {
		return nil, ErrInvalidCurrency
	}
	for i, it := range items {
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("line item %d: %w", i, err)
		}
	}

	now := time.Now().UTC()
	return &Transaction{
		ID:             id,
		OrderID:        orderID,
		UserID:         userID,
		Amount:         amount,
		OriginalAmount: amount,
		Currency:       currency,
		Status:         StatusNew,
		PaymentMethod:  method,
		LineItems:      MergeLineItems(items),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// OwnedBy reports whether userID is the owner of the transaction.
func (t *Transaction) OwnedBy(userID int64) bool { return t.UserID == userID }

// ApplyDiscount moves a NEW transaction to DISCOUNTED with the new amount.
func (t *Transaction) ApplyDiscount(newAmount decimal.Decimal, promoCode string) error {
	st, err := stateFor(t.Status)
	if err != nil {
		return err
	}
	next, err := st.OnDiscounted(t, newAmount, promoCode)
	if err != nil {
		return err
	}
	t.transitionTo(next)
	return nil
}

// MarkPaid moves NEW or DISCOUNTED to PAID.
func (t *Transaction) MarkPaid() error {
	st, err := stateFor(t.Status)
	if err != nil {
		return err
	}
	next, err := st.OnPaid(t)
	if err != nil {
		return err
	}
	t.transitionTo(next)
	return nil
}

// MarkRefunded moves PAID to REFUNDED.
func (t *Transaction) MarkRefunded() error {
	st, err := stateFor(t.Status)
	if err != nil {
		return err
	}
	next, err := st.OnRefunded(t)
	if err != nil {
		return err
	}
	t.transitionTo(next)
	return nil
}

func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	c.LineItems = append([]LineItem(nil), t.LineItems...)
	return &c
}

func (t *Transaction) transitionTo(s State) {
	t.Status = s.Status()
	t.Version++
	t.UpdatedAt = time.Now().UTC()
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
