package notify

import (
	"context"
	"testing"

	appinv "github.com/Zhima-Mochi/storefront/internal/application/inventory"
	"github.com/Zhima-Mochi/storefront/internal/observability/observabilitytest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdmins(t *testing.T) {
	dir, err := ParseAdmins("ops:ops@example.com, stock@example.com,")
	require.NoError(t, err)

	admins, err := dir.Admins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []appinv.Admin{
		{Username: "ops", Email: "ops@example.com"},
		{Username: "stock", Email: "stock@example.com"},
	}, admins)

	_, err = ParseAdmins("ops:not-an-email")
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	rec := observabilitytest.New()
	m := NewLogMailer(rec.Logger())

	require.NoError(t, m.Send(context.Background(), "ops@example.com", "Product Stock Alert: Lamp", "body"))
	entries := rec.Entries("low_stock_mail")
	require.Len(t, entries, 1)
	assert.Equal(t, "ops@example.com", entries[0].Fields["to"])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, m.Send(ctx, "ops@example.com", "s", "b"))
}
