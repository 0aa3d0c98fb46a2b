package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studentdesk/complaints/internal/model"
	"github.com/studentdesk/complaints/internal/repository"
	"github.com/studentdesk/complaints/internal/storage"
	"github.com/studentdesk/complaints/internal/validation"
)

type AttachmentService struct {
	policy         *Policy
	attachmentRepo repository.AttachmentRepository
	storage        storage.Storage
}

func NewAttachmentService(policy *Policy, attachmentRepo repository.AttachmentRepository, storage storage.Storage) *AttachmentService {
	return &AttachmentService{
		policy:         policy,
		attachmentRepo: attachmentRepo,
		storage:        storage,
	}
}

// Upload validates and stores evidence for a complaint the student has yet to file.
// The blob is written first; if recording it fails the blob stays behind and
// is reported for reconciliation rather than deleted.
func (s *AttachmentService) Upload(ctx context.Context, ownerID, filename, mimeType string, content []byte) (*model.Attachment, error) {
	principal, err := s.policy.RequireStudent(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	err = validation.ValidateFile(filename, mimeType, content, validation.AttachmentConstraints)
	if err != nil {
		var fe *validation.FileError
		if errors.As(err, &fe) {
			return nil, &ValidationError{Field: fe.Field, Message: fe.Message}
		}
		return nil, err
	}

	now := time.Now().UTC()
	path := storage.OwnerPath(principal.ID, mimeType, now)

	err = storage.SaveOwned(ctx, s.storage, principal.ID, path, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	attachment := &model.Attachment{
		ID:               uuid.New().String(),
		OwnerUserID:      principal.ID,
		OriginalFilename: strings.TrimSpace(filename),
		StoredPath:       path,
		MimeType:         mimeType,
		ByteSize:         int64(len(content)),
		CreatedAt:        now,
	}

	err = s.attachmentRepo.Create(ctx, attachment)
	if err != nil {
		slog.Error("orphaned blob",
			"path", path,
			"user_id", principal.ID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}

	slog.Info("attachment uploaded",
		"attachment_id", attachment.ID,
		"user_id", principal.ID,
		"mime_type", mimeType,
		"byte_size", attachment.ByteSize,
	)
	return attachment, nil
}

// Download streams an attachment to its owner or an admin. The caller closes the reader.
func (s *AttachmentService) Download(ctx context.Context, attachmentID, requesterID string) (*model.Attachment, io.ReadCloser, error) {
	attachment, err := s.readable(ctx, attachmentID, requesterID)
	if err != nil {
		return nil, nil, err
	}

	content, err := s.storage.Open(ctx, attachment.StoredPath)
	if errors.Is(err, storage.ErrObjectNotFound) {
		slog.Error("attachment blob missing",
			"attachment_id", attachment.ID,
			"path", attachment.StoredPath,
		)
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open attachment: %w", err)
	}

	return attachment, content, nil
}

// DownloadURL returns a short-lived direct download link when the blob backend can sign one.
func (s *AttachmentService) DownloadURL(ctx context.Context, attachmentID, requesterID string) (string, error) {
	attachment, err := s.readable(ctx, attachmentID, requesterID)
	if err != nil {
		return "", err
	}

	url, err := s.storage.URL(ctx, attachment.StoredPath)
	if errors.Is(err, storage.ErrPresignUnsupported) {
		return "", fmt.Errorf("%w: download URLs", ErrUnsupported)
	}
	if err != nil {
		return "", fmt.Errorf("failed to sign download URL: %w", err)
	}
	return url, nil
}

func (s *AttachmentService) readable(ctx context.Context, attachmentID, requesterID string) (*model.Attachment, error) {
	principal, err := s.policy.Authenticate(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	if principal.IsAdmin() {
		attachment, err := s.attachmentRepo.ByID(ctx, attachmentID)
		if errors.Is(err, repository.ErrAttachmentNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get attachment: %w", err)
		}
		return attachment, nil
	}

	attachment, err := s.attachmentRepo.ByIDForOwner(ctx, attachmentID, principal.ID)
	if errors.Is(err, repository.ErrAttachmentNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return attachment, nil
}

// FindOrphans lists blobs under prefix that no attachment record points at.
// Blobs written less than minAge ago are skipped: their upload may still be
// inserting its record. Operator only. With remove set, the orphans are deleted as well.
func (s *AttachmentService) FindOrphans(ctx context.Context, prefix string, minAge time.Duration, remove bool) ([]string, error) {
	cutoff := time.Now().Add(-minAge)

	blobs, err := s.storage.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	recorded, err := s.attachmentRepo.StoredPaths(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachment records: %w", err)
	}
	known := make(map[string]struct{}, len(recorded))
	for _, path := range recorded {
		known[path] = struct{}{}
	}

	var orphans []string
	for _, path := range blobs {
		if _, ok := known[path]; ok {
			continue
		}
		if written, ok := storage.PathTime(path); ok && written.After(cutoff) {
			slog.Debug("skipping recent unrecorded blob", "path", path, "written_at", written)
			continue
		}
		orphans = append(orphans, path)
		if !remove {
			continue
		}
		if err := s.storage.Delete(ctx, path); err != nil {
			return orphans, fmt.Errorf("failed to delete orphan %s: %w", path, err)
		}
		slog.Info("orphaned blob deleted", "path", path)
	}

	return orphans, nil
}

// Unlinked lists uploads older than age that were never attached to a complaint. Operator only.
func (s *AttachmentService) Unlinked(ctx context.Context, age time.Duration) ([]*model.Attachment, error) {
	attachments, err := s.attachmentRepo.Unlinked(ctx, time.Now().Add(-age))
	if err != nil {
		return nil, fmt.Errorf("failed to list unlinked attachments: %w", err)
	}
	return attachments, nil
}
