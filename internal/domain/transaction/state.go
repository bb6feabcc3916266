package transaction

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// State implements the state pattern for the payment lifecycle.
type State interface {
	Status() Status
	OnDiscounted(t *Transaction, amount decimal.Decimal, promoCode string) (State, error)
	OnPaid(t *Transaction) (State, error)
	OnRefunded(t *Transaction) (State, error)
}

func stateFor(s Status) (State, error) {
	switch s {
	case StatusNew:
		return newState{}, nil
	case StatusDiscounted:
		return discountedState{}, nil
	case StatusPaid:
		return paidState{}, nil
	case StatusRefunded:
		return refundedState{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStateTransition, s)
	}
}

func invalid(from Status, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
}

type newState struct{}

func (newState) Status() Status { return StatusNew }

func (newState) OnDiscounted(t *Transaction, amount decimal.Decimal, promoCode string) (State, error) {
	if amount.IsNegative() || amount.GreaterThan(t.Amount) {
		return nil, ErrInvalidDiscount
	}
	t.Amount = amount
	t.PromoCode = promoCode
	return discountedState{}, nil
}

func (newState) OnPaid(*Transaction) (State, error) { return paidState{}, nil }

func (newState) OnRefunded(*Transaction) (State, error) {
	return nil, invalid(StatusNew, StatusRefunded)
}

// discountedState is NEW with a promotion applied; only one promotion per transaction.
type discountedState struct{}

func (discountedState) Status() Status { return StatusDiscounted }

func (discountedState) OnDiscounted(*Transaction, decimal.Decimal, string) (State, error) {
	return nil, invalid(StatusDiscounted, StatusDiscounted)
}

func (discountedState) OnPaid(*Transaction) (State, error) { return paidState{}, nil }

func (discountedState) OnRefunded(*Transaction) (State, error) {
	return nil, invalid(StatusDiscounted, StatusRefunded)
}

type paidState struct{}

func (paidState) Status() Status { return StatusPaid }

func (paidState) OnDiscounted(*Transaction, decimal.Decimal, string) (State, error) {
	return nil, invalid(StatusPaid, StatusDiscounted)
}

func (paidState) OnPaid(*Transaction) (State, error) {
	return nil, invalid(StatusPaid, StatusPaid)
}

func (paidState) OnRefunded(*Transaction) (State, error) { return refundedState{}, nil }

type refundedState struct{}

func (refundedState) Status() Status { return StatusRefunded }

func (refundedState) OnDiscounted(*Transaction, decimal.Decimal, string) (State, error) {
	return nil, invalid(StatusRefunded, StatusDiscounted)
}

func (refundedState) OnPaid(*Transaction) (State, error) {
	return nil, invalid(StatusRefunded, StatusPaid)
}

func (refundedState) OnRefunded(*Transaction) (State, error) {
	return nil, invalid(StatusRefunded, StatusRefunded)
}
