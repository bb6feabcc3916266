package stock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/transaction"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"

	"github.com/google/uuid"
)

const (
	defaultLookupTimeout = 2 * time.Second
	defaultConcurrency   = 8
	lookupPeer           = "inventory"
	lookupEndpoint       = "GET /products/{id}"
)

// Validator pre-checks line items against current stock. The result is advisory.
type Validator struct {
	lookup      ProductLookup
	timeout     time.Duration
	concurrency int

	log          observability.Logger
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

type ValidatorOption func(*Validator)

// WithLookupTimeout bounds each product lookup.
func WithLookupTimeout(d time.Duration) ValidatorOption {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithConcurrency caps the number of in-flight lookups.
func WithConcurrency(n int) ValidatorOption {
	return func(v *Validator) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

func NewValidator(lookup ProductLookup, tel observability.Observability, opts ...ValidatorOption) *Validator {
	tel = observability.Or(tel)
	m := tel.Metrics()
	v := &Validator{
		lookup:       lookup,
		timeout:      defaultLookupTimeout,
		concurrency:  defaultConcurrency,
		log:          tel.Logger().With(observability.F("component", "stock_validator")),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns one reason per unsatisfiable line item, in line item order.
// An empty result means every item had enough stock at lookup time.
func (v *Validator) Validate(ctx context.Context, items []transaction.LineItem) []string {
	if len(items) == 0 {
		return nil
	}
	reasons := make([]string, len(items))
	sem := make(chan struct{}, v.concurrency)
	var wg sync.WaitGroup

	for i, it := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			reasons[i] = v.check(ctx, it)
		}()
	}
	wg.Wait()

	out := make([]string, 0, len(items))
	for _, r := range reasons {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

func (v *Validator) check(ctx context.Context, it transaction.LineItem) string {
	if _, err := uuid.Parse(it.ProductID); err != nil {
		return fmt.Sprintf("Invalid product ID format: %s", it.ProductID)
	}

	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	p, err := v.lookup.GetProduct(callCtx, it.ProductID)
	outcome := "success"
	defer func() {
		v.extCounter.Add(1,
			observability.L("peer", lookupPeer),
			observability.L("endpoint", lookupEndpoint),
			observability.L("outcome", outcome),
		)
		v.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", lookupPeer),
			observability.L("endpoint", lookupEndpoint),
		)
	}()

	switch {
	case errors.Is(err, ErrProductNotFound):
		outcome = "not_found"
		return fmt.Sprintf("Product ID %s not found", it.ProductID)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		outcome = "timeout"
		logctx.FromOr(ctx, v.log).Warn("stock_lookup_timeout",
			observability.F("product_id", it.ProductID),
			observability.F("timeout", v.timeout.String()),
		)
		return fmt.Sprintf("insufficient stock unknown for product %s", it.ProductID)
	case err != nil:
		outcome = "error"
		logctx.FromOr(ctx, v.log).Warn("stock_lookup_failed",
			observability.F("product_id", it.ProductID),
			observability.F("error", err),
		)
		return fmt.Sprintf("Unable to validate product ID %s: %v", it.ProductID, err)
	case p == nil:
		outcome = "not_found"
		return fmt.Sprintf("Product ID %s not found", it.ProductID)
	case p.Quantity < it.Quantity:
		return fmt.Sprintf("%s (only %d available)", p.Name, p.Quantity)
	}
	return ""
}
