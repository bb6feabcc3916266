package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MethodCard   = "card"
	MethodWallet = "wallet"
	// DefaultMethod is used when a stored tag is unknown.
	DefaultMethod = MethodCard
)

var ErrDeclined = errors.New("payment: declined")

// Charge describes one monetary side effect against a transaction.
type Charge struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
}

// Method performs the charge and refund of a payment instrument.
type Method interface {
	Name() string
	Charge(ctx context.Context, c Charge) error
	Refund(ctx context.Context, c Charge) error
}

// Registry resolves a payment method tag into a Method.
type Registry struct {
	methods  map[string]Method
	fallback Method
}

// NewRegistry indexes methods by their lowercase Name. The DefaultMethod entry is the fallback.
func NewRegistry(methods ...Method) *Registry {
	r := &Registry{methods: make(map[string]Method, len(methods))}
	for _, m := range methods {
		if m == nil {
			continue
		}
		r.methods[strings.ToLower(m.Name())] = m
	}
	r.fallback = r.methods[DefaultMethod]
	return r
}

// Resolve returns the method for tag, or the default card method when tag is unknown.
func (r *Registry) Resolve(tag string) (Method, bool) {
	if m, ok := r.methods[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return m, true
	}
	return r.fallback, r.fallback != nil
}
