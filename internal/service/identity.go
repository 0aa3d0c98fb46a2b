package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studentdesk/complaints/internal/model"
	"github.com/studentdesk/complaints/internal/repository"
	"github.com/studentdesk/complaints/internal/validation"
)

type IdentityService struct {
	profileRepo repository.ProfileRepository
	roles       RoleCache
}

func NewIdentityService(profileRepo repository.ProfileRepository, roles RoleCache) *IdentityService {
	return &IdentityService{
		profileRepo: profileRepo,
		roles:       roles,
	}
}

// roleInfo is the privileged lookup. It bypasses the Policy on purpose: the
// Policy itself is built on top of it.
func (s *IdentityService) roleInfo(ctx context.Context, principalID string) (*model.RoleInfo, error) {
	if principalID == "" {
		return nil, ErrNotFound
	}
	if info, ok := s.roles.Get(ctx, principalID); ok {
		return info, nil
	}

	info, err := s.profileRepo.RoleOf(ctx, principalID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve role: %w", err)
	}

	s.roles.Set(ctx, principalID, info)
	return info, nil
}

func (s *IdentityService) ResolveRole(ctx context.Context, principalID string) (model.Role, error) {
	info, err := s.roleInfo(ctx, principalID)
	if err != nil {
		return "", err
	}
	return info.Role, nil
}

func (s *IdentityService) IsAdmin(ctx context.Context, principalID string) (bool, error) {
	role, err := s.ResolveRole(ctx, principalID)
	if err != nil {
		return false, err
	}
	return role == model.RoleAdmin, nil
}

// GetProfile returns the principal's own profile.
func (s *IdentityService) GetProfile(ctx context.Context, principalID string) (*model.Profile, error) {
	info, err := s.roleInfo(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if !info.IsActive {
		return nil, ErrUnauthorized
	}

	profile, err := s.profileRepo.ByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

type ProvisionInput struct {
	ID       string
	Role     model.Role
	FullName string
	Email    string
}

// Provision creates the profile for a principal issued by the auth provider.
// Operator only; the role is fixed for the lifetime of the profile.
func (s *IdentityService) Provision(ctx context.Context, in ProvisionInput) (*model.Profile, error) {
	id := strings.TrimSpace(in.ID)
	name := strings.TrimSpace(in.FullName)
	email := strings.TrimSpace(strings.ToLower(in.Email))

	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "principal id is required"}
	}
	if !in.Role.Valid() {
		return nil, &ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", in.Role)}
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, invalid("full_name", err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, invalid("email", err)
	}

	profile := &model.Profile{
		ID:       id,
		Role:     in.Role,
		FullName: name,
		Email:    email,
		IsActive: true,
	}
	err := s.profileRepo.Create(ctx, profile)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, &ValidationError{Field: "email", Message: "email already in use"}
		}
		if errors.Is(err, repository.ErrProfileExists) {
			return nil, &ValidationError{Field: "id", Message: "profile already exists"}
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	slog.Info("profile provisioned", "user_id", profile.ID, "role", profile.Role)
	return profile, nil
}

// ProfileUpdate carries the self-service fields. Nil fields keep their value.
type ProfileUpdate struct {
	FullName *string
	Email    *string
}

// UpdateProfile validates every supplied field before writing any of them.
func (s *IdentityService) UpdateProfile(ctx context.Context, principalID string, in ProfileUpdate) (*model.Profile, error) {
	if in.FullName == nil && in.Email == nil {
		return nil, &ValidationError{Field: "body", Message: "nothing to update"}
	}
	if err := s.requireActive(ctx, principalID); err != nil {
		return nil, err
	}

	current, err := s.profileRepo.ByID(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	name, email := current.FullName, current.Email
	if in.FullName != nil {
		name = strings.TrimSpace(*in.FullName)
		if err := validation.ValidateName(name); err != nil {
			return nil, invalid("full_name", err)
		}
	}
	if in.Email != nil {
		email = strings.TrimSpace(strings.ToLower(*in.Email))
		if err := validation.ValidateEmail(email); err != nil {
			return nil, invalid("email", err)
		}
	}

	err = s.profileRepo.UpdateDetails(ctx, principalID, name, email)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, &ValidationError{Field: "email", Message: "email already in use"}
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.GetProfile(ctx, principalID)
}

// Deactivate blocks the principal from every authorized operation while
// keeping their complaints and ledger entries. Operator only.
func (s *IdentityService) Deactivate(ctx context.Context, principalID string) error {
	err := s.profileRepo.SetActive(ctx, principalID, false)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to deactivate profile: %w", err)
	}

	s.roles.Invalidate(ctx, principalID)
	slog.Info("profile deactivated", "user_id", principalID)
	return nil
}

// Delete removes a profile and, by cascade, the student's complaints,
// attachments and their ledgers. Admins that appear in any ledger cannot be
// deleted; deactivate them instead. Operator only.
func (s *IdentityService) Delete(ctx context.Context, principalID string) error {
	err := s.profileRepo.Delete(ctx, principalID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, repository.ErrConstraintViolation) {
		return &ValidationError{Field: "id", Message: "profile is referenced by complaint history, deactivate it instead"}
	}
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	s.roles.Invalidate(ctx, principalID)
	slog.Info("profile deleted", "user_id", principalID)
	return nil
}

func (s *IdentityService) requireActive(ctx context.Context, principalID string) error {
	info, err := s.roleInfo(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if !info.IsActive {
		return ErrUnauthorized
	}
	return nil
}
