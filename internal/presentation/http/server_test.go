package httppresentation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/application/auth"
	appinv "github.com/Zhima-Mochi/storefront/internal/application/inventory"
	apppromo "github.com/Zhima-Mochi/storefront/internal/application/promotion"
	apptx "github.com/Zhima-Mochi/storefront/internal/application/transaction"
	"github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	"github.com/Zhima-Mochi/storefront/internal/domain/payment"
	"github.com/Zhima-Mochi/storefront/internal/domain/promotion"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/id"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/observabilitytest"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var widgetID = uuid.MustParse("6f1c3a52-8d0e-4d3a-9a57-3f0f4c1b2e11")

type fixture struct {
	srv *httptest.Server
	rec *observabilitytest.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := observabilitytest.New()
	tokens := auth.StaticTokens{
		"alice": {UserID: 1, Email: "alice@example.com"},
		"bob":   {UserID: 2, Email: "bob@example.com"},
	}

	txRepo := memory.NewTransactionRepository()
	methods := payment.NewRegistry(payment.Card{}, payment.Wallet{})
	txHandler := NewTransactionHandler(
		apptx.NewCreateUseCase(txRepo, id.UUIDGenerator{}, nil, nil, time.Second, rec),
		apptx.NewPayUseCase(txRepo, methods, nil, rec),
		apptx.NewRefundUseCase(txRepo, methods, nil, rec),
		apptx.NewGetUseCase(txRepo, rec),
		apptx.NewHistoryUseCase(txRepo, rec),
		tokens,
	)

	products := memory.NewProductRepository(&inventory.Product{
		ID: widgetID, Name: "Widget", Price: decimal.RequireFromString("25.00"), Quantity: 5,
	})
	now := time.Now().UTC()
	promos := memory.NewPromotionRepository(&promotion.Promotion{
		ID: uuid.New(), Code: "RAMADAN20", Type: promotion.TypeCartPromoCode,
		Value: decimal.NewFromInt(20), Active: true,
		StartDate: now.AddDate(0, 0, -1), EndDate: now.AddDate(0, 0, 1),
	})
	invHandler := NewInventoryHandler(
		appinv.NewGetProductUseCase(products, rec),
		apppromo.NewApplyUseCase(promos, products, nil, rec),
	)

	s := NewServer("storefront", nil, rec)
	txHandler.Register(s)
	invHandler.Register(s)
	NewUsersHandler(tokens).Register(s)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, rec: rec}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		var raw any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
		if m, ok := raw.(map[string]any); ok {
			out = m
		} else {
			out = map[string]any{"items": raw}
		}
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(headerRequestID))
}

func TestTransactionLifecycle(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/transactions", "alice",
		`{"orderId":10,"amount":"100.00","currency":"usd","lineItems":[{"productId":"`+widgetID.String()+`","quantity":2}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "NEW", body["status"])
	assert.Equal(t, "USD", body["currency"])
	txID := body["id"].(string)

	resp, body = f.do(t, http.MethodPost, "/transactions/"+txID+"/pay", "alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PAID", body["status"])

	resp, body = f.do(t, http.MethodPost, "/transactions/"+txID+"/pay", "alice", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", body["kind"])

	resp, body = f.do(t, http.MethodPost, "/transactions/"+txID+"/refund", "alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "REFUNDED", body["status"])

	resp, body = f.do(t, http.MethodGet, "/transactions/user/1", "alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"], 1)

	assert.Equal(t, 1.0, f.rec.Count(observability.MHTTPRequests,
		observability.L("method", http.MethodPost),
		observability.L("route", "POST /transactions"),
		observability.L("status", "201"),
	))
	assert.NotEmpty(t, f.rec.Entries("http_access"))
}

func TestTransactionAuthorization(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/transactions", "", `{"amount":"1","currency":"USD"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/transactions", "mallory", `{"amount":"1","currency":"USD"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/transactions", "alice", `{"amount":"5","currency":"USD"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	txID := body["id"].(string)

	resp, body = f.do(t, http.MethodGet, "/transactions/"+txID, "bob", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "authorization", body["kind"])

	resp, _ = f.do(t, http.MethodPost, "/transactions/"+txID+"/pay", "bob", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/transactions/user/1", "bob", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/transactions/user/abc", "alice", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/transactions/missing", "alice", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/transactions", "alice", `{"amount":"-1","currency":"USD"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/transactions", "alice", `{"unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetProduct(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/products/"+widgetID.String(), "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Widget", body["name"])
	assert.Equal(t, 5.0, body["quantity"])
	assert.Equal(t, 10.0, body["threshold"])

	resp, _ = f.do(t, http.MethodGet, "/products/"+uuid.NewString(), "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/products/not-a-uuid", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApplyPromotion(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/promotions/apply?promoCode=RAMADAN20&total=100", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "applied", body["outcome"])
	assert.Equal(t, "80.00", body["newTotal"])

	resp, body = f.do(t, http.MethodPost, "/promotions/apply?promoCode=NOPE&total=100", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["outcome"])

	resp, body = f.do(t, http.MethodPost, "/promotions/apply?promoCode=RAMADAN20", "",
		`{"items":[{"productId":"`+uuid.NewString()+`","quantity":1}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "inapplicable", body["outcome"])

	resp, _ = f.do(t, http.MethodPost, "/promotions/apply?promoCode=RAMADAN20&total=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidateToken(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/users/validate-token?token=alice", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1.0, body["userId"])

	resp, body = f.do(t, http.MethodGet, "/users/validate-token?token=nobody", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}
