package handler

import (
	"net/http"
	"strings"

	"github.com/studentdesk/complaints/internal/service"
)

// SessionHandler lets browser clients trade a provider-issued bearer token
// for an HttpOnly cookie, and drop it again.
type SessionHandler struct {
	tokenService *service.TokenService
}

func NewSessionHandler(tokenService *service.TokenService) *SessionHandler {
	return &SessionHandler{
		tokenService: tokenService,
	}
}

type sessionRequest struct {
	Token string `json:"token"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	token := strings.TrimSpace(req.Token)
	principalID, expiresAt, err := h.tokenService.Session(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired token"})
		return
	}

	h.tokenService.SetCookie(w, token, expiresAt)
	writeJSON(w, http.StatusOK, map[string]any{"principal_id": principalID, "expires_at": expiresAt})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.tokenService.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
