// Package redisledger keeps claimed stock adjustment keys in Redis so every consumer replica shares them.
package redisledger

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/inventory"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL    = 24 * time.Hour
	defaultPrefix = "stock:adjustment:"
)

type Ledger struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

var _ inventory.Ledger = (*Ledger)(nil)

func New(client redis.UniversalClient, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Ledger{client: client, ttl: ttl, prefix: defaultPrefix}
}

// Dial builds a client for addr and checks it answers.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisledger: ping %s: %w", addr, err)
	}
	return client, nil
}

func (l *Ledger) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+key, time.Now().UTC().Format(time.RFC3339Nano), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redisledger: claim: %w", err)
	}
	return ok, nil
}

func (l *Ledger) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("redisledger: release: %w", err)
	}
	return nil
}
