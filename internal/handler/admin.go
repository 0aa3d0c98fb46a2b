package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studentdesk/complaints/internal/ctxkeys"
	"github.com/studentdesk/complaints/internal/model"
	"github.com/studentdesk/complaints/internal/service"
)

type AdminHandler struct {
	complaintService *service.ComplaintService
}

func NewAdminHandler(complaintService *service.ComplaintService) *AdminHandler {
	return &AdminHandler{
		complaintService: complaintService,
	}
}

// ListComplaints supports ?status=, ?category= and ?q= (free-text search).
func (h *AdminHandler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := model.ComplaintFilters{
		Status:   model.Status(query.Get("status")),
		Category: model.Category(query.Get("category")),
		Search:   query.Get("q"),
	}

	items, err := h.complaintService.ListAll(r.Context(), ctxkeys.Principal(r.Context()), filters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []*model.ComplaintListItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

type updateStatusRequest struct {
	Status model.Status `json:"status"`
	// Omitted keeps the current note; "" clears it
	Note *string `json:"note"`
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	complaint, err := h.complaintService.UpdateStatus(r.Context(), chi.URLParam(r, "id"), ctxkeys.Principal(r.Context()), req.Status, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, complaint)
}

type statsResponse struct {
	Total    int                  `json:"total"`
	ByStatus map[model.Status]int `json:"by_status"`
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.complaintService.Stats(r.Context(), ctxkeys.Principal(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := statsResponse{ByStatus: counts}
	for _, n := range counts {
		resp.Total += n
	}
	writeJSON(w, http.StatusOK, resp)
}
