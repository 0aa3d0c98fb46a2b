package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/studentdesk/complaints/internal/ctxkeys"
	"github.com/studentdesk/complaints/internal/model"
	"github.com/studentdesk/complaints/internal/service"
)

// multipart framing allowance on top of the file itself
const uploadOverhead = 1 << 20

type AttachmentHandler struct {
	attachmentService *service.AttachmentService
}

func NewAttachmentHandler(attachmentService *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
	}
}

// Upload accepts multipart/form-data with a single "file" part. The part's
// Content-Type is the declared mime type and must match the file's content.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, model.MaxAttachmentSize+uploadOverhead)

	err := r.ParseMultipartForm(uploadOverhead)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, &service.ValidationError{
				Field:   "file",
				Message: "file too large: maximum size is " + humanize.IBytes(model.MaxAttachmentSize),
			})
			return
		}
		writeError(w, r, &service.ValidationError{Field: "file", Message: "expected multipart/form-data with a file field"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, &service.ValidationError{Field: "file", Message: "file is required"})
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(io.LimitReader(file, model.MaxAttachmentSize+1))
	if err != nil {
		writeError(w, r, err)
		return
	}

	mimeType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil {
		mimeType = ""
	}

	attachment, err := h.attachmentService.Upload(r.Context(), ctxkeys.Principal(r.Context()), header.Filename, mimeType, content)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/attachments/"+attachment.ID)
	writeJSON(w, http.StatusCreated, attachment)
}

func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	attachment, content, err := h.attachmentService.Download(r.Context(), chi.URLParam(r, "id"), ctxkeys.Principal(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() { _ = content.Close() }()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": attachment.OriginalFilename})
	if disposition == "" {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", attachment.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(attachment.ByteSize, 10))
	w.Header().Set("Content-Disposition", disposition)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		slog.Warn("attachment download interrupted",
			"attachment_id", attachment.ID,
			"user_id", ctxkeys.Principal(r.Context()),
			"error", err,
		)
	}
}

func (h *AttachmentHandler) URL(w http.ResponseWriter, r *http.Request) {
	url, err := h.attachmentService.DownloadURL(r.Context(), chi.URLParam(r, "id"), ctxkeys.Principal(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
