package redisledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, ttl time.Duration) (*Ledger, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), srv
}

func TestClaimIsExclusiveUntilReleased(t *testing.T) {
	l, srv := newLedger(t, time.Hour)
	ctx := context.Background()
	key := "decrement|tx-1|p1"

	ok, err := l.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, srv.Exists(defaultPrefix+key))

	ok, err = l.Claim(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, key))
	ok, err = l.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClaimExpires(t *testing.T) {
	l, srv := newLedger(t, time.Minute)
	ctx := context.Background()

	ok, err := l.Claim(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Minute, srv.TTL(defaultPrefix+"k"))

	srv.FastForward(2 * time.Minute)
	ok, err = l.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClaimSurfacesOutage(t *testing.T) {
	l, srv := newLedger(t, time.Minute)
	srv.Close()

	_, err := l.Claim(context.Background(), "k")
	assert.Error(t, err)
}

func TestDial(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	client, err := Dial(context.Background(), addr)
	require.NoError(t, err)
	_ = client.Close()

	srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = Dial(ctx, addr)
	assert.Error(t, err)
}
