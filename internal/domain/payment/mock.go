package payment

import (
	"context"
	"fmt"
)

// Card is a mocked card processor; it accepts every non-negative charge.
type Card struct{}

func (Card) Name() string { return MethodCard }

func (Card) Charge(ctx context.Context, c Charge) error { return settle(ctx, c) }

func (Card) Refund(ctx context.Context, c Charge) error { return settle(ctx, c) }

// Wallet is a mocked stored-value wallet.
type Wallet struct{}

func (Wallet) Name() string { return MethodWallet }

func (Wallet) Charge(ctx context.Context, c Charge) error { return settle(ctx, c) }

func (Wallet) Refund(ctx context.Context, c Charge) error { return settle(ctx, c) }

func settle(ctx context.Context, c Charge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrDeclined, c.Amount)
	}
	return nil
}
