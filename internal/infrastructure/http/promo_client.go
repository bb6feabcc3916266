package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	apptx "github.com/Zhima-Mochi/storefront/internal/application/transaction"
	"github.com/Zhima-Mochi/storefront/internal/domain/transaction"

	"github.com/shopspring/decimal"
)

// PromoClient asks the inventory service to price a promo code.
type PromoClient struct{ c *client }

var _ apptx.PromoApplier = (*PromoClient)(nil)

func NewPromoClient(cfg Config) (*PromoClient, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &PromoClient{c: c}, nil
}

type promoItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type promoRequest struct {
	Items []promoItem `json:"items"`
}

type promoResponse struct {
	Outcome   string   `json:"outcome"`
	NewTotal  string   `json:"newTotal"`
	AppliedTo []string `json:"appliedTo"`
	Reason    string   `json:"reason"`
}

func (p *PromoClient) Apply(ctx context.Context, code string, total decimal.Decimal, items []transaction.LineItem) (apptx.PromoResult, error) {
	q := url.Values{}
	q.Set("promoCode", code)
	q.Set("total", total.String())
	body := promoRequest{Items: make([]promoItem, 0, len(items))}
	for _, it := range items {
		body.Items = append(body.Items, promoItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	resp, err := p.c.do(ctx, http.MethodPost, "/promotions/apply", q, body)
	if err != nil {
		return apptx.PromoResult{}, err
	}
	switch resp.status {
	case http.StatusOK, http.StatusNotFound, http.StatusUnprocessableEntity:
	default:
		return apptx.PromoResult{}, unexpected("apply promotion", resp)
	}

	var out promoResponse
	if err := resp.decode(&out); err != nil {
		return apptx.PromoResult{}, err
	}
	res := apptx.PromoResult{Outcome: out.Outcome, AppliedTo: out.AppliedTo, Reason: out.Reason}
	switch out.Outcome {
	case apptx.PromoApplied:
		nt, err := decimal.NewFromString(out.NewTotal)
		if err != nil {
			return apptx.PromoResult{}, fmt.Errorf("httpclient: apply promotion: new total %q: %w", out.NewTotal, err)
		}
		res.NewTotal = nt
	case apptx.PromoNotFound, apptx.PromoInapplicable:
	default:
		return apptx.PromoResult{}, fmt.Errorf("httpclient: apply promotion: unknown outcome %q", out.Outcome)
	}
	return res, nil
}
