// Package auth resolves bearer tokens into a verified caller identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidToken = errors.New("auth: invalid or expired token")

type Identity struct {
	UserID int64
	Email  string
}

// TokenValidator verifies a token with the user service.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (Identity, error)
}

// StaticTokens is a fixed token table for local runs.
type StaticTokens map[string]Identity

// ParseStaticTokens reads "token:userId[:email]" entries separated by commas.
func ParseStaticTokens(spec string) (StaticTokens, error) {
	out := StaticTokens{}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" {
			return nil, fmt.Errorf("auth: static token %q: want token:userId[:email]", entry)
		}
		uid, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || uid <= 0 {
			return nil, fmt.Errorf("auth: static token %q: bad user id", entry)
		}
		id := Identity{UserID: uid}
		if len(parts) == 3 {
			id.Email = parts[2]
		}
		out[parts[0]] = id
	}
	return out, nil
}

func (s StaticTokens) ValidateToken(ctx context.Context, token string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	id, ok := s[token]
	if !ok || token == "" {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
