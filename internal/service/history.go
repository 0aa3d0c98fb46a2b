package service

import (
	"context"
	"fmt"

	"github.com/studentdesk/complaints/internal/model"
	"github.com/studentdesk/complaints/internal/repository"
)

// HistoryService exposes the status ledger read-only. Entries are only ever
// written by the complaint repository's create and update transactions.
type HistoryService struct {
	policy      *Policy
	complaints  *ComplaintService
	historyRepo repository.HistoryRepository
}

func NewHistoryService(policy *Policy, complaints *ComplaintService, historyRepo repository.HistoryRepository) *HistoryService {
	return &HistoryService{
		policy:      policy,
		complaints:  complaints,
		historyRepo: historyRepo,
	}
}

// ListForComplaint returns the ledger oldest first, with the same visibility as ComplaintService.Get.
func (s *HistoryService) ListForComplaint(ctx context.Context, complaintID, requesterID string) ([]*model.StatusHistoryEntry, error) {
	principal, err := s.policy.Authenticate(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if _, err := s.complaints.readable(ctx, principal, complaintID); err != nil {
		return nil, err
	}

	entries, err := s.historyRepo.ByComplaint(ctx, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	return entries, nil
}
