package service

import (
	"context"
	"errors"

	"github.com/studentdesk/complaints/internal/model"
)

// Principal is an authenticated, active caller with a resolved role.
type Principal struct {
	ID   string
	Role model.Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == model.RoleAdmin
}

// Policy runs before any data access. Unknown or inactive principals are
// rejected with ErrUnauthorized so callers cannot probe for profiles.
type Policy struct {
	identity *IdentityService
}

func NewPolicy(identity *IdentityService) *Policy {
	return &Policy{identity: identity}
}

func (p *Policy) Authenticate(ctx context.Context, principalID string) (Principal, error) {
	info, err := p.identity.roleInfo(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}
	if !info.IsActive {
		return Principal{}, ErrUnauthorized
	}
	return Principal{ID: principalID, Role: info.Role}, nil
}

func (p *Policy) RequireAdmin(ctx context.Context, principalID string) (Principal, error) {
	principal, err := p.Authenticate(ctx, principalID)
	if err != nil {
		return Principal{}, err
	}
	if !principal.IsAdmin() {
		return Principal{}, ErrUnauthorized
	}
	return principal, nil
}

func (p *Policy) RequireStudent(ctx context.Context, principalID string) (Principal, error) {
	principal, err := p.Authenticate(ctx, principalID)
	if err != nil {
		return Principal{}, err
	}
	if principal.Role != model.RoleStudent {
		return Principal{}, ErrUnauthorized
	}
	return principal, nil
}
