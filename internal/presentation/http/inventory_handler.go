package httppresentation

import (
	"net/http"
	"strings"

	appinv "github.com/Zhima-Mochi/storefront/internal/application/inventory"
	apppromo "github.com/Zhima-Mochi/storefront/internal/application/promotion"
	"github.com/Zhima-Mochi/storefront/internal/application/stock"
	"github.com/Zhima-Mochi/storefront/internal/pkg/apperr"

	"github.com/shopspring/decimal"
)

// InventoryHandler serves product snapshots and promotion pricing to the transaction service.
type InventoryHandler struct {
	products *appinv.GetProductUseCase
	promos   *apppromo.ApplyUseCase
}

func NewInventoryHandler(products *appinv.GetProductUseCase, promos *apppromo.ApplyUseCase) *InventoryHandler {
	return &InventoryHandler{products: products, promos: promos}
}

func (h *InventoryHandler) Register(s *Server) {
	s.Handle("GET /products/{id}", h.handleGetProduct)
	s.Handle("POST /promotions/apply", h.handleApplyPromotion)
}

func (h *InventoryHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Execute(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stock.ProductSnapshot{
		ID:          p.ID.String(),
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Description: p.Description,
		Threshold:   p.LowStockThreshold(),
		Category:    p.Category,
	})
}

type applyPromotionRequest struct {
	Items []lineItemJSON `json:"items"`
}

type applyPromotionResponse struct {
	Outcome   string   `json:"outcome"`
	NewTotal  string   `json:"newTotal,omitempty"`
	AppliedTo []string `json:"appliedTo,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

func (h *InventoryHandler) handleApplyPromotion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	total := decimal.Zero
	if raw := strings.TrimSpace(q.Get("total")); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			writeAppError(w, r, apperr.Validation("total %q is not a number", raw))
			return
		}
		total = d
	}
	var req applyPromotionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	items := make([]apppromo.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, apppromo.Item{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	res, err := h.promos.Execute(r.Context(), apppromo.ApplyInput{Code: q.Get("promoCode"), Total: total, Items: items})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	body := applyPromotionResponse{Outcome: res.Outcome, AppliedTo: res.AppliedTo, Reason: res.Reason}
	status := http.StatusOK
	switch res.Outcome {
	case apppromo.OutcomeApplied:
		body.NewTotal = res.NewTotal.StringFixed(2)
	case apppromo.OutcomeNotFound:
		status = http.StatusNotFound
	default:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, body)
}
