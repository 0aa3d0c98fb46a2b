package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentdesk/complaints/internal/model"
	"github.com/studentdesk/complaints/internal/testutil"
)

func TestResolveRole(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	student := f.student(t)
	admin := f.admin(t)

	role, err := f.identity.ResolveRole(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, role)

	isAdmin, err := f.identity.IsAdmin(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = f.identity.IsAdmin(ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	_, err = f.identity.ResolveRole(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestGetProfile(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	student := f.student(t)

	profile, err := f.identity.GetProfile(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, student.Email, profile.Email)

	_, err = f.identity.GetProfile(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.identity.Deactivate(ctx, student.ID))
	_, err = f.identity.GetProfile(ctx, student.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestProvision(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	profile, err := f.identity.Provision(ctx, ProvisionInput{
		ID: "auth|42", Role: model.RoleStudent, FullName: " Grace Hopper ", Email: "Grace@Example.edu",
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", profile.FullName)
	assert.Equal(t, "grace@example.edu", profile.Email)
	assert.True(t, profile.IsActive)

	_, err = f.identity.Provision(ctx, ProvisionInput{ID: "auth|42", Role: model.RoleStudent, FullName: "Again", Email: "again@example.edu"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.identity.Provision(ctx, ProvisionInput{ID: "auth|43", Role: model.RoleStudent, FullName: "Dup", Email: "grace@example.edu"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.identity.Provision(ctx, ProvisionInput{ID: "auth|44", Role: "staff", FullName: "T", Email: "t@example.edu"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.identity.Provision(ctx, ProvisionInput{ID: "auth|45", Role: model.RoleAdmin, FullName: "", Email: "x@example.edu"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	student := f.student(t)
	other := f.student(t)

	profile, err := f.identity.UpdateProfile(ctx, student.ID, ProfileUpdate{FullName: ptr("  New Name ")})
	require.NoError(t, err)
	assert.Equal(t, "New Name", profile.FullName)
	assert.Equal(t, student.Email, profile.Email)

	profile, err = f.identity.UpdateProfile(ctx, student.ID, ProfileUpdate{Email: ptr("NEW@example.edu")})
	require.NoError(t, err)
	assert.Equal(t, "new@example.edu", profile.Email)
	assert.Equal(t, "New Name", profile.FullName)

	_, err = f.identity.UpdateProfile(ctx, student.ID, ProfileUpdate{Email: ptr(other.Email)})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.identity.UpdateProfile(ctx, student.ID, ProfileUpdate{Email: ptr("broken")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.identity.UpdateProfile(ctx, student.ID, ProfileUpdate{FullName: ptr("")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.identity.UpdateProfile(ctx, student.ID, ProfileUpdate{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.identity.UpdateProfile(ctx, "unknown", ProfileUpdate{FullName: ptr("Name")})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateProfileRejectsWholeChangeOnBadField(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	student := f.student(t)
	other := f.student(t)

	_, err := f.identity.UpdateProfile(ctx, student.ID, ProfileUpdate{FullName: ptr("Changed"), Email: ptr("broken")})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)

	_, err = f.identity.UpdateProfile(ctx, student.ID, ProfileUpdate{FullName: ptr("Changed"), Email: ptr(other.Email)})
	assert.ErrorIs(t, err, ErrValidation)

	profile, err := f.identity.GetProfile(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, student.FullName, profile.FullName)
	assert.Equal(t, student.Email, profile.Email)
}

func TestDeleteProfile(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	student := f.student(t)
	admin := f.admin(t)
	c := f.file(t, student.ID)

	_, err := f.complaints.UpdateStatus(ctx, c.ID, admin.ID, model.StatusInProgress, nil)
	require.NoError(t, err)

	err = f.identity.Delete(ctx, admin.ID)
	assert.ErrorIs(t, err, ErrValidation, "admins referenced by the ledger are deactivated, not deleted")

	require.NoError(t, f.identity.Delete(ctx, student.ID))
	assert.Equal(t, 0, testutil.CountRows(t, f.db, "complaints", ""))
	assert.Equal(t, 0, testutil.CountRows(t, f.db, "complaint_status_history", ""))

	_, err = f.identity.ResolveRole(ctx, student.ID)
	assert.ErrorIs(t, err, ErrNotFound, "the cached role is dropped on delete")

	assert.ErrorIs(t, f.identity.Delete(ctx, student.ID), ErrNotFound)
	assert.ErrorIs(t, f.identity.Deactivate(ctx, "unknown"), ErrNotFound)
}

func TestMemoryRoleCacheExpires(t *testing.T) {
	ctx := testContext(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryRoleCache(time.Minute)
	cache.now = func() time.Time { return now }

	cache.Set(ctx, "u", &model.RoleInfo{Role: model.RoleAdmin, IsActive: true})
	info, ok := cache.Get(ctx, "u")
	require.True(t, ok)
	assert.Equal(t, model.RoleAdmin, info.Role)

	now = now.Add(time.Minute)
	_, ok = cache.Get(ctx, "u")
	assert.False(t, ok)

	cache.Set(ctx, "u", &model.RoleInfo{Role: model.RoleAdmin, IsActive: true})
	cache.Invalidate(ctx, "u")
	_, ok = cache.Get(ctx, "u")
	assert.False(t, ok)
}

func TestMemoryRoleCacheDisabledWithZeroTTL(t *testing.T) {
	cache := NewMemoryRoleCache(0)
	cache.Set(testContext(t), "u", &model.RoleInfo{Role: model.RoleStudent, IsActive: true})
	_, ok := cache.Get(testContext(t), "u")
	assert.False(t, ok)
}
