package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studentdesk/complaints/internal/model"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrDuplicateEmail  = errors.New("email already exists")
	ErrProfileExists   = errors.New("profile already exists")
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	ByID(ctx context.Context, id string) (*model.Profile, error)
	RoleOf(ctx context.Context, id string) (*model.RoleInfo, error)
	UpdateDetails(ctx context.Context, id, name, email string) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, role, full_name, email, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, profile.ID, string(profile.Role), profile.FullName, profile.Email, profile.IsActive, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		if isUniqueViolationOn(err, "email") {
			return ErrDuplicateEmail
		}
		if isUniqueViolation(err) {
			return ErrProfileExists
		}
		if isIntegrityViolation(err) {
			return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
		}
		return err
	}

	return nil
}

func (r *profileRepository) ByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.GetContext(ctx, &profile, `SELECT * FROM profiles WHERE id = $1`, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

// RoleOf is the privileged role lookup backing every authorization decision.
// It reads only the role columns and must never be routed through the access policy.
func (r *profileRepository) RoleOf(ctx context.Context, id string) (*model.RoleInfo, error) {
	var info model.RoleInfo
	err := r.db.GetContext(ctx, &info, `SELECT role, is_active FROM profiles WHERE id = $1`, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &info, nil
}

// UpdateDetails writes name and email in one statement so a rejected email
// never leaves a renamed profile behind.
func (r *profileRepository) UpdateDetails(ctx context.Context, id, name, email string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET full_name = $1, email = $2, updated_at = $3
		WHERE id = $4
	`, name, email, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	return expectOneRow(result, ErrProfileNotFound)
}

func (r *profileRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET is_active = $1, updated_at = $2
		WHERE id = $3
	`, active, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	return expectOneRow(result, ErrProfileNotFound)
}

// Delete removes a profile; complaints, attachments and their ledgers cascade.
func (r *profileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		if isIntegrityViolation(err) {
			return fmt.Errorf("%w: profile is referenced by status history: %v", ErrConstraintViolation, err)
		}
		return err
	}

	return expectOneRow(result, ErrProfileNotFound)
}

func expectOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
