package inventory

import "context"

// Ledger records stock adjustments that have been claimed for processing.
// Entries expire so the ledger stays bounded.
type Ledger interface {
	// Claim returns false when key was already claimed.
	Claim(ctx context.Context, key string) (bool, error)
	// Release drops a claim so a redelivery can retry the adjustment.
	Release(ctx context.Context, key string) error
}
