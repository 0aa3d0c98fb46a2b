package handler

import (
	"net/http"

	"github.com/studentdesk/complaints/internal/ctxkeys"
	"github.com/studentdesk/complaints/internal/service"
)

type ProfileHandler struct {
	identityService *service.IdentityService
}

func NewProfileHandler(identityService *service.IdentityService) *ProfileHandler {
	return &ProfileHandler{
		identityService: identityService,
	}
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.identityService.GetProfile(r.Context(), ctxkeys.Principal(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
}

// UpdateMe changes the caller's name and/or email. Role and activation are operator-managed.
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	principalID := ctxkeys.Principal(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := h.identityService.UpdateProfile(r.Context(), principalID, service.ProfileUpdate{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
