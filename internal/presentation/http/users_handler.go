package httppresentation

import (
	"net/http"

	"github.com/Zhima-Mochi/storefront/internal/application/auth"
)

// UsersHandler answers token checks for other services.
type UsersHandler struct {
	tokens auth.TokenValidator
}

func NewUsersHandler(tokens auth.TokenValidator) *UsersHandler {
	return &UsersHandler{tokens: tokens}
}

func (h *UsersHandler) Register(s *Server) {
	s.Handle("GET /users/validate-token", h.handleValidateToken)
}

type validateTokenResponse struct {
	Success bool   `json:"success"`
	UserID  int64  `json:"userId,omitempty"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *UsersHandler) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusBadRequest, validateTokenResponse{Message: "token is required"})
		return
	}
	id, err := h.tokens.ValidateToken(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, validateTokenResponse{Message: auth.ErrInvalidToken.Error()})
		return
	}
	writeJSON(w, http.StatusOK, validateTokenResponse{Success: true, UserID: id.UserID, Email: id.Email})
}
