package httpclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Zhima-Mochi/storefront/internal/application/auth"
)

// UserClient validates bearer tokens against the user service.
type UserClient struct{ c *client }

var _ auth.TokenValidator = (*UserClient)(nil)

func NewUserClient(cfg Config) (*UserClient, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &UserClient{c: c}, nil
}

type validateTokenResponse struct {
	Success bool   `json:"success"`
	UserID  int64  `json:"userId"`
	Email   string `json:"email"`
}

func (u *UserClient) ValidateToken(ctx context.Context, token string) (auth.Identity, error) {
	resp, err := u.c.do(ctx, http.MethodGet, "/users/validate-token", url.Values{"token": {token}}, nil)
	if err != nil {
		return auth.Identity{}, err
	}
	switch resp.status {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return auth.Identity{}, auth.ErrInvalidToken
	default:
		return auth.Identity{}, unexpected("validate token", resp)
	}
	var out validateTokenResponse
	if err := resp.decode(&out); err != nil {
		return auth.Identity{}, err
	}
	if !out.Success || out.UserID <= 0 {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return auth.Identity{UserID: out.UserID, Email: out.Email}, nil
}
