package httppresentation

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/application/auth"
	apptx "github.com/Zhima-Mochi/storefront/internal/application/transaction"
	domain "github.com/Zhima-Mochi/storefront/internal/domain/transaction"
	"github.com/Zhima-Mochi/storefront/internal/pkg/apperr"

	"github.com/shopspring/decimal"
)

// TransactionHandler exposes the transaction lifecycle. Every route requires a verified caller.
type TransactionHandler struct {
	create  *apptx.CreateUseCase
	pay     *apptx.PayUseCase
	refund  *apptx.RefundUseCase
	get     *apptx.GetUseCase
	history *apptx.HistoryUseCase
	tokens  auth.TokenValidator
}

func NewTransactionHandler(
	create *apptx.CreateUseCase,
	pay *apptx.PayUseCase,
	refund *apptx.RefundUseCase,
	get *apptx.GetUseCase,
	history *apptx.HistoryUseCase,
	tokens auth.TokenValidator,
) *TransactionHandler {
	return &TransactionHandler{create: create, pay: pay, refund: refund, get: get, history: history, tokens: tokens}
}

func (h *TransactionHandler) Register(s *Server) {
	s.Handle("POST /transactions", RequireCaller(h.tokens, h.handleCreate))
	s.Handle("GET /transactions/{id}", RequireCaller(h.tokens, h.handleGet))
	s.Handle("POST /transactions/{id}/pay", RequireCaller(h.tokens, h.handlePay))
	s.Handle("POST /transactions/{id}/refund", RequireCaller(h.tokens, h.handleRefund))
	s.Handle("GET /transactions/user/{userId}", RequireCaller(h.tokens, h.handleHistory))
}

type lineItemJSON struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type createTransactionRequest struct {
	OrderID       int64           `json:"orderId"`
	UserID        int64           `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"paymentMethod"`
	PromoCode     string          `json:"promoCode"`
	LineItems     []lineItemJSON  `json:"lineItems"`
}

type transactionResponse struct {
	ID             string         `json:"id"`
	OrderID        int64          `json:"orderId"`
	UserID         int64          `json:"userId"`
	Amount         string         `json:"amount"`
	OriginalAmount string         `json:"originalAmount"`
	Currency       string         `json:"currency"`
	Status         domain.Status  `json:"status"`
	PaymentMethod  string         `json:"paymentMethod"`
	PromoCode      string         `json:"promoCode,omitempty"`
	LineItems      []lineItemJSON `json:"lineItems"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type createTransactionResponse struct {
	transactionResponse
	PromoOutcome string `json:"promoOutcome,omitempty"`
	PromoReason  string `json:"promoReason,omitempty"`
}

type paymentResponse struct {
	transactionResponse
	UnpublishedItems []lineItemJSON `json:"unpublishedItems,omitempty"`
}

func toResponse(t *domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:             t.ID,
		OrderID:        t.OrderID,
		UserID:         t.UserID,
		Amount:         t.Amount.StringFixed(2),
		OriginalAmount: t.OriginalAmount.StringFixed(2),
		Currency:       t.Currency,
		Status:         t.Status,
		PaymentMethod:  t.PaymentMethod,
		PromoCode:      t.PromoCode,
		LineItems:      toLineItemsJSON(t.LineItems),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func toLineItemsJSON(items []domain.LineItem) []lineItemJSON {
	out := make([]lineItemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, lineItemJSON{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

func (h *TransactionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller := callerFrom(r)
	if req.UserID == 0 {
		req.UserID = caller
	}
	items := make([]domain.LineItem, 0, len(req.LineItems))
	for _, it := range req.LineItems {
		items = append(items, domain.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	res, err := h.create.Execute(r.Context(), apptx.CreateInput{
		CallerID:      caller,
		OrderID:       req.OrderID,
		UserID:        req.UserID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		PromoCode:     req.PromoCode,
		LineItems:     items,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createTransactionResponse{
		transactionResponse: toResponse(res.Transaction),
		PromoOutcome:        res.PromoOutcome,
		PromoReason:         res.PromoReason,
	})
}

func (h *TransactionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.get.Execute(r.Context(), apptx.GetInput{CallerID: callerFrom(r), TransactionID: r.PathValue("id")})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (h *TransactionHandler) handlePay(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.pay.Execute)
}

func (h *TransactionHandler) handleRefund(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.refund.Execute)
}

func (h *TransactionHandler) settle(w http.ResponseWriter, r *http.Request, exec func(context.Context, apptx.PaymentInput) (*apptx.PaymentResult, error)) {
	res, err := exec(r.Context(), apptx.PaymentInput{CallerID: callerFrom(r), TransactionID: r.PathValue("id")})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	body := paymentResponse{transactionResponse: toResponse(res.Transaction)}
	if len(res.UnpublishedItems) > 0 {
		body.UnpublishedItems = toLineItemsJSON(res.UnpublishedItems)
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *TransactionHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("userId"), 10, 64)
	if err != nil || userID <= 0 {
		writeAppError(w, r, apperr.Validation("user id must be a positive integer"))
		return
	}
	list, err := h.history.Execute(r.Context(), apptx.HistoryInput{CallerID: callerFrom(r), UserID: userID})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}
