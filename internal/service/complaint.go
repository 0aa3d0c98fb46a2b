package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studentdesk/complaints/internal/model"
	"github.com/studentdesk/complaints/internal/repository"
	"github.com/studentdesk/complaints/internal/validation"
)

// maxStatusAttempts bounds how often UpdateStatus re-reads after losing a
// compare-and-set to a concurrent admin.
const maxStatusAttempts = 3

type ComplaintService struct {
	policy        *Policy
	complaintRepo repository.ComplaintRepository
}

func NewComplaintService(policy *Policy, complaintRepo repository.ComplaintRepository) *ComplaintService {
	return &ComplaintService{
		policy:        policy,
		complaintRepo: complaintRepo,
	}
}

type CreateComplaintInput struct {
	Title        string         `json:"title"`
	Category     model.Category `json:"category"`
	Description  string         `json:"description"`
	AttachmentID *string        `json:"attachment_id"`
}

// Create files a new complaint for the student. The opening ledger entry and
// the attachment link are written in the same transaction as the complaint.
func (s *ComplaintService) Create(ctx context.Context, studentID string, in CreateComplaintInput) (*model.Complaint, error) {
	principal, err := s.policy.RequireStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)

	if err := validation.ValidateTitle(title); err != nil {
		return nil, invalid("title", err)
	}
	if err := validation.ValidateCategory(in.Category); err != nil {
		return nil, invalid("category", err)
	}
	if err := validation.ValidateDescription(description); err != nil {
		return nil, invalid("description", err)
	}

	var attachmentID *string
	if in.AttachmentID != nil {
		if id := strings.TrimSpace(*in.AttachmentID); id != "" {
			attachmentID = &id
		}
	}

	now := time.Now().UTC()
	complaint := &model.Complaint{
		ID:           uuid.New().String(),
		StudentID:    principal.ID,
		Title:        title,
		Category:     in.Category,
		Description:  description,
		AttachmentID: attachmentID,
		Status:       model.StatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.complaintRepo.Create(ctx, complaint)
	if err != nil {
		if errors.Is(err, repository.ErrAttachmentUnavailable) {
			return nil, &ValidationError{Field: "attachment_id", Message: "attachment does not exist, is not yours, or is already attached to a complaint"}
		}
		if errors.Is(err, repository.ErrConstraintViolation) {
			return nil, &ValidationError{Message: err.Error()}
		}
		return nil, fmt.Errorf("failed to create complaint: %w", err)
	}

	slog.Info("complaint created",
		"complaint_id", complaint.ID,
		"user_id", principal.ID,
		"category", complaint.Category,
		"has_attachment", attachmentID != nil,
	)
	return complaint, nil
}

// Get returns a complaint to its owner or to an admin. Students asking for
// someone else's complaint, or one that doesn't exist, get ErrUnauthorized.
func (s *ComplaintService) Get(ctx context.Context, complaintID, requesterID string) (*model.Complaint, error) {
	principal, err := s.policy.Authenticate(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return s.readable(ctx, principal, complaintID)
}

// readable loads a complaint through the principal's row-level scope.
func (s *ComplaintService) readable(ctx context.Context, principal Principal, complaintID string) (*model.Complaint, error) {
	if principal.IsAdmin() {
		complaint, err := s.complaintRepo.ByID(ctx, complaintID)
		if errors.Is(err, repository.ErrComplaintNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get complaint: %w", err)
		}
		return complaint, nil
	}

	complaint, err := s.complaintRepo.ByIDForStudent(ctx, complaintID, principal.ID)
	if errors.Is(err, repository.ErrComplaintNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}
	return complaint, nil
}

// ListForStudent returns the caller's own complaints, newest first.
func (s *ComplaintService) ListForStudent(ctx context.Context, studentID string) ([]*model.Complaint, error) {
	principal, err := s.policy.RequireStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	complaints, err := s.complaintRepo.ByStudent(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	return complaints, nil
}

func (s *ComplaintService) ListAll(ctx context.Context, requesterID string, filters model.ComplaintFilters) ([]*model.ComplaintListItem, error) {
	if _, err := s.policy.RequireAdmin(ctx, requesterID); err != nil {
		return nil, err
	}

	if filters.Status != "" {
		if err := validation.ValidateStatus(filters.Status); err != nil {
			return nil, invalid("status", err)
		}
	}
	if filters.Category != "" {
		if err := validation.ValidateCategory(filters.Category); err != nil {
			return nil, invalid("category", err)
		}
	}
	filters.Search = strings.TrimSpace(filters.Search)

	items, err := s.complaintRepo.All(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	return items, nil
}

// UpdateStatus moves a complaint through its lifecycle and records the change
// in the ledger. A nil note keeps the current admin note; an empty one clears it.
// Re-submitting the current status edits the note and is recorded with from == to.
func (s *ComplaintService) UpdateStatus(ctx context.Context, complaintID, requesterID string, newStatus model.Status, note *string) (*model.Complaint, error) {
	principal, err := s.policy.RequireAdmin(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateStatus(newStatus); err != nil {
		return nil, invalid("status", err)
	}
	if note != nil {
		if err := validation.ValidateAdminNote(*note, false); err != nil {
			return nil, invalid("note", err)
		}
	}

	for attempt := 1; attempt <= maxStatusAttempts; attempt++ {
		current, err := s.readable(ctx, principal, complaintID)
		if err != nil {
			return nil, err
		}

		if !current.Status.CanTransitionTo(newStatus) {
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, newStatus)
		}

		nextNote := current.AdminNote
		if note != nil {
			nextNote = nil
			if trimmed := strings.TrimSpace(*note); trimmed != "" {
				nextNote = &trimmed
			}
		}

		if newStatus == model.StatusResolved {
			noteText := ""
			if nextNote != nil {
				noteText = *nextNote
			}
			if err := validation.ValidateAdminNote(noteText, true); err != nil {
				return nil, invalid("note", err)
			}
		}

		updated, err := s.complaintRepo.UpdateStatus(ctx, repository.StatusChange{
			ComplaintID: current.ID,
			ChangedBy:   principal.ID,
			From:        current.Status,
			To:          newStatus,
			Note:        nextNote,
			At:          time.Now().UTC(),
		})
		if errors.Is(err, repository.ErrStatusConflict) {
			slog.Debug("complaint status changed concurrently, retrying",
				"complaint_id", complaintID,
				"attempt", attempt,
			)
			continue
		}
		if errors.Is(err, repository.ErrConstraintViolation) {
			return nil, &ValidationError{Message: err.Error()}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update complaint status: %w", err)
		}

		slog.Info("complaint status changed",
			"complaint_id", updated.ID,
			"user_id", principal.ID,
			"from", current.Status,
			"to", updated.Status,
		)
		return updated, nil
	}

	return nil, fmt.Errorf("%w: complaint %s", ErrConflict, complaintID)
}

// Stats counts complaints per status for the admin dashboard.
func (s *ComplaintService) Stats(ctx context.Context, requesterID string) (map[model.Status]int, error) {
	if _, err := s.policy.RequireAdmin(ctx, requesterID); err != nil {
		return nil, err
	}

	counts, err := s.complaintRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count complaints: %w", err)
	}
	return counts, nil
}
