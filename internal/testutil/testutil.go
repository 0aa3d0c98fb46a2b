// Package testutil provides throwaway databases, blob stores and fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/studentdesk/complaints/internal/db"
	"github.com/studentdesk/complaints/internal/model"
)

// NewDB opens a migrated SQLite database inside t.TempDir().
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	dsn := filepath.Join(t.TempDir(), "desk.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	database, err := db.Init(ctx, "sqlite", dsn)
	require.NoError(t, err, "open sqlite")

	// A single connection keeps SQLite writers serialized.
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(ctx, database.DB, "sqlite"), "run migrations")
	return database
}

// SeedProfile inserts an active profile with the given role.
func SeedProfile(t *testing.T, database *sqlx.DB, role model.Role) *model.Profile {
	t.Helper()

	id := uuid.New().String()
	now := time.Now().UTC()
	profile := &model.Profile{
		ID:        id,
		Role:      role,
		FullName:  fmt.Sprintf("Test %s %s", role, id[:8]),
		Email:     fmt.Sprintf("%s-%s@example.edu", role, id[:8]),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := database.Exec(`
		INSERT INTO profiles (id, role, full_name, email, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, profile.ID, string(profile.Role), profile.FullName, profile.Email, profile.IsActive, profile.CreatedAt, profile.UpdatedAt)
	require.NoError(t, err, "seed profile")

	return profile
}

// CountRows returns the number of rows in table matching an optional where clause.
func CountRows(t *testing.T, database *sqlx.DB, table, where string, args ...any) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}

	var n int
	require.NoError(t, database.Get(&n, query, args...))
	return n
}

// Fixture bytes with valid magic numbers for each allowed attachment type.
var (
	PDFBytes  = []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
	PNGBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	JPEGBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00\xff\xd9")
)
