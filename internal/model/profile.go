package model

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// Profile is the identity record of a principal. ID is the subject issued by
// the external auth provider and never changes for the account's lifetime.
type Profile struct {
	ID        string    `db:"id" json:"id"`
	Role      Role      `db:"role" json:"role"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// RoleInfo is the narrow projection used for authorization checks.
type RoleInfo struct {
	Role     Role `db:"role"`
	IsActive bool `db:"is_active"`
}
