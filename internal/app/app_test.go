package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appinv "github.com/Zhima-Mochi/storefront/internal/application/inventory"
	appstock "github.com/Zhima-Mochi/storefront/internal/application/stock"
	"github.com/Zhima-Mochi/storefront/internal/config"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		ServiceName:      "storefront-test",
		Env:              "test",
		LogLevel:         "error",
		HTTPAddr:         "127.0.0.1:0",
		ShutdownTimeout:  5 * time.Second,
		Store:            config.StoreMemory,
		Broker:           config.BrokerMemory,
		Ledger:           config.LedgerMemory,
		ConsumerWorkers:  2,
		MaxRedeliveries:  2,
		RetryBackoff:     10 * time.Millisecond,
		LedgerTTL:        time.Hour,
		RemoteTimeout:    2 * time.Second,
		AuthStaticTokens: "alice:1:alice@example.com",
		AdminEmails:      "ops:ops@example.com",
	}
}

func startStorefront(t *testing.T) *httptest.Server {
	t.Helper()
	a, err := New(context.Background(), testConfig(), Storefront)
	require.NoError(t, err)
	a.Start(context.Background())
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, a.Shutdown(ctx))
	})
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer alice")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

// stockOf reports -1 when the product cannot be read; it is safe inside assert.Eventually.
func stockOf(srv *httptest.Server, id string) float64 {
	resp, err := srv.Client().Get(srv.URL + "/products/" + id)
	if err != nil {
		return -1
	}
	defer resp.Body.Close()
	var body struct {
		Quantity float64 `json:"quantity"`
	}
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&body) != nil {
		return -1
	}
	return body.Quantity
}

func TestStorefrontPaymentAndRefundAdjustStock(t *testing.T) {
	srv := startStorefront(t)
	cable := seedCableID.String()
	require.Equal(t, 12.0, stockOf(srv, cable))

	status, body := call(t, srv, http.MethodPost, "/transactions",
		`{"orderId":7,"amount":"29.97","currency":"USD","promoCode":"RAMADAN20",`+
			`"lineItems":[{"productId":"`+cable+`","quantity":3}]}`)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "DISCOUNTED", body["status"])
	assert.Equal(t, "23.98", body["amount"])
	txID := body["id"].(string)

	status, body = call(t, srv, http.MethodPost, "/transactions/"+txID+"/pay", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "PAID", body["status"])

	assert.Eventually(t, func() bool { return stockOf(srv, cable) == 9 }, 3*time.Second, 20*time.Millisecond)

	status, body = call(t, srv, http.MethodPost, "/transactions/"+txID+"/refund", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "REFUNDED", body["status"])

	assert.Eventually(t, func() bool { return stockOf(srv, cable) == 12 }, 3*time.Second, 20*time.Millisecond)
}

func TestStorefrontRejectsInsufficientStock(t *testing.T) {
	srv := startStorefront(t)

	status, body := call(t, srv, http.MethodPost, "/transactions",
		`{"orderId":8,"amount":"999.00","currency":"USD",`+
			`"lineItems":[{"productId":"`+seedKeyboardID.String()+`","quantity":41}]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "insufficient_stock", body["kind"])
}

func TestStorefrontServesMetrics(t *testing.T) {
	srv := startStorefront(t)
	call(t, srv, http.MethodGet, "/health", "")

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "http_requests_total")
	assert.Contains(t, string(raw), "go_goroutines")
}

func TestTransactionServiceRequiresInventoryURL(t *testing.T) {
	_, err := New(context.Background(), testConfig(), TransactionService)
	require.ErrorContains(t, err, "INVENTORY_URL")
}

func TestLocalProductsMapsNotFound(t *testing.T) {
	lookup := localProducts{uc: appinv.NewGetProductUseCase(memory.NewProductRepository(), nil)}

	_, err := lookup.GetProduct(context.Background(), "0b7e2d8c-1111-4a2b-9c3d-4e5f6a7b8c9d")
	assert.ErrorIs(t, err, appstock.ErrProductNotFound)
}
