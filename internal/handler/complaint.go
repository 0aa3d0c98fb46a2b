package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studentdesk/complaints/internal/ctxkeys"
	"github.com/studentdesk/complaints/internal/model"
	"github.com/studentdesk/complaints/internal/service"
)

type ComplaintHandler struct {
	complaintService *service.ComplaintService
	historyService   *service.HistoryService
}

func NewComplaintHandler(complaintService *service.ComplaintService, historyService *service.HistoryService) *ComplaintHandler {
	return &ComplaintHandler{
		complaintService: complaintService,
		historyService:   historyService,
	}
}

func (h *ComplaintHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateComplaintInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	complaint, err := h.complaintService.Create(r.Context(), ctxkeys.Principal(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/complaints/"+complaint.ID)
	writeJSON(w, http.StatusCreated, complaint)
}

func (h *ComplaintHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	complaints, err := h.complaintService.ListForStudent(r.Context(), ctxkeys.Principal(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if complaints == nil {
		complaints = []*model.Complaint{}
	}
	writeJSON(w, http.StatusOK, complaints)
}

func (h *ComplaintHandler) Get(w http.ResponseWriter, r *http.Request) {
	complaint, err := h.complaintService.Get(r.Context(), chi.URLParam(r, "id"), ctxkeys.Principal(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, complaint)
}

func (h *ComplaintHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.historyService.ListForComplaint(r.Context(), chi.URLParam(r, "id"), ctxkeys.Principal(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
