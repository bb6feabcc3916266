package httppresentation

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/storefront/internal/application/auth"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"
)

// RequireCaller verifies the bearer token (or ?token=) and puts the caller identity on the context.
func RequireCaller(tokens auth.TokenValidator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		id, err := tokens.ValidateToken(r.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				logctx.FromOr(r.Context(), nil).Warn("token_validation_failed",
					observability.F("error", err.Error()))
			}
			writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken)
			return
		}
		ctx := auth.WithIdentity(r.Context(), id)
		ctx = logctx.WithFields(ctx, observability.F("user_id", id.UserID))
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func callerFrom(r *http.Request) int64 {
	id, _ := auth.FromContext(r.Context())
	return id.UserID
}
