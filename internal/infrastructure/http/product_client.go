package httpclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Zhima-Mochi/storefront/internal/application/stock"
)

// ProductClient reads product snapshots from the inventory service.
type ProductClient struct{ c *client }

var _ stock.ProductLookup = (*ProductClient)(nil)

func NewProductClient(cfg Config) (*ProductClient, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ProductClient{c: c}, nil
}

func (p *ProductClient) GetProduct(ctx context.Context, id string) (*stock.ProductSnapshot, error) {
	resp, err := p.c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	switch resp.status {
	case http.StatusOK:
		var snap stock.ProductSnapshot
		if err := resp.decode(&snap); err != nil {
			return nil, err
		}
		return &snap, nil
	case http.StatusNotFound:
		return nil, stock.ErrProductNotFound
	default:
		return nil, unexpected("get product", resp)
	}
}
