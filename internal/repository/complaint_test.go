package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentdesk/complaints/internal/model"
	"github.com/studentdesk/complaints/internal/repository"
	"github.com/studentdesk/complaints/internal/testutil"
)

func newComplaint(studentID, title string, at time.Time) *model.Complaint {
	return &model.Complaint{
		ID:          uuid.New().String(),
		StudentID:   studentID,
		Title:       title,
		Category:    model.CategoryMentor,
		Description: "Mentor missed three sessions in a row.",
		Status:      model.StatusOpen,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func newAttachment(ownerID string) *model.Attachment {
	id := uuid.New().String()
	return &model.Attachment{
		ID:               id,
		OwnerUserID:      ownerID,
		OriginalFilename: "evidence.pdf",
		StoredPath:       ownerID + "/" + id + ".pdf",
		MimeType:         model.MimeTypePDF,
		ByteSize:         1024,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestComplaintCreateWritesOpeningLedgerEntry(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	student := testutil.SeedProfile(t, db, model.RoleStudent)
	complaints := repository.NewComplaintRepository(db)
	history := repository.NewHistoryRepository(db)

	c := newComplaint(student.ID, "Mentor absent", time.Now().UTC())
	require.NoError(t, complaints.Create(ctx, c))

	entries, err := history.ByComplaint(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].FromStatus)
	assert.Equal(t, model.StatusOpen, entries[0].ToStatus)
	assert.Equal(t, student.ID, entries[0].ChangedByUserID)
	assert.Equal(t, 1, entries[0].Seq)
}

func TestComplaintCreateLinksAttachment(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	student := testutil.SeedProfile(t, db, model.RoleStudent)
	attachments := repository.NewAttachmentRepository(db)
	complaints := repository.NewComplaintRepository(db)

	a := newAttachment(student.ID)
	require.NoError(t, attachments.Create(ctx, a))

	c := newComplaint(student.ID, "With evidence", time.Now().UTC())
	c.AttachmentID = &a.ID
	require.NoError(t, complaints.Create(ctx, c))

	linked, err := attachments.ByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.ComplaintID)
	assert.Equal(t, c.ID, *linked.ComplaintID)

	// The same attachment cannot back a second complaint.
	second := newComplaint(student.ID, "Reusing evidence", time.Now().UTC())
	second.AttachmentID = &a.ID
	err = complaints.Create(ctx, second)
	assert.ErrorIs(t, err, repository.ErrAttachmentUnavailable)
	assert.Equal(t, 0, testutil.CountRows(t, db, "complaints", "id = $1", second.ID))
}

func TestComplaintCreateRejectsForeignAttachmentAtomically(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	owner := testutil.SeedProfile(t, db, model.RoleStudent)
	other := testutil.SeedProfile(t, db, model.RoleStudent)
	attachments := repository.NewAttachmentRepository(db)
	complaints := repository.NewComplaintRepository(db)

	a := newAttachment(owner.ID)
	require.NoError(t, attachments.Create(ctx, a))

	c := newComplaint(other.ID, "Borrowed file", time.Now().UTC())
	c.AttachmentID = &a.ID
	err := complaints.Create(ctx, c)
	require.ErrorIs(t, err, repository.ErrAttachmentUnavailable)

	assert.Equal(t, 0, testutil.CountRows(t, db, "complaints", ""))
	assert.Equal(t, 0, testutil.CountRows(t, db, "complaint_status_history", ""))
}

func TestComplaintByIDForStudentScopesToOwner(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	owner := testutil.SeedProfile(t, db, model.RoleStudent)
	other := testutil.SeedProfile(t, db, model.RoleStudent)
	complaints := repository.NewComplaintRepository(db)

	c := newComplaint(owner.ID, "Private", time.Now().UTC())
	require.NoError(t, complaints.Create(ctx, c))

	got, err := complaints.ByIDForStudent(ctx, c.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Title, got.Title)

	_, err = complaints.ByIDForStudent(ctx, c.ID, other.ID)
	assert.ErrorIs(t, err, repository.ErrComplaintNotFound)

	_, err = complaints.ByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, repository.ErrComplaintNotFound)
}

func TestComplaintByStudentNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	student := testutil.SeedProfile(t, db, model.RoleStudent)
	other := testutil.SeedProfile(t, db, model.RoleStudent)
	complaints := repository.NewComplaintRepository(db)

	base := time.Now().UTC().Add(-time.Hour)
	for i, title := range []string{"first", "second", "third"} {
		require.NoError(t, complaints.Create(ctx, newComplaint(student.ID, title, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, complaints.Create(ctx, newComplaint(other.ID, "not mine", base)))

	list, err := complaints.ByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Title)
	assert.Equal(t, "second", list[1].Title)
	assert.Equal(t, "first", list[2].Title)
}

func TestComplaintAllFiltersAndSearch(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	alice := testutil.SeedProfile(t, db, model.RoleStudent)
	bob := testutil.SeedProfile(t, db, model.RoleStudent)
	complaints := repository.NewComplaintRepository(db)

	base := time.Now().UTC().Add(-time.Hour)
	wifi := newComplaint(alice.ID, "WiFi down in Working Hub", base)
	wifi.Category = model.CategoryWorkingHub
	peer := newComplaint(bob.ID, "Noisy neighbour", base.Add(time.Minute))
	peer.Category = model.CategoryPeer
	peer.Description = "Plays music at 100% volume"
	require.NoError(t, complaints.Create(ctx, wifi))
	require.NoError(t, complaints.Create(ctx, peer))

	all, err := complaints.All(ctx, model.ComplaintFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, peer.ID, all[0].ID)
	assert.Equal(t, bob.FullName, all[0].StudentName)
	assert.Equal(t, bob.Email, all[0].StudentEmail)

	byCategory, err := complaints.All(ctx, model.ComplaintFilters{Category: model.CategoryWorkingHub})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, wifi.ID, byCategory[0].ID)

	byTitle, err := complaints.All(ctx, model.ComplaintFilters{Search: "wifi"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, wifi.ID, byTitle[0].ID)

	byEmail, err := complaints.All(ctx, model.ComplaintFilters{Search: bob.Email[:16]})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, peer.ID, byEmail[0].ID)

	// Wildcards in the term are matched literally.
	byPercent, err := complaints.All(ctx, model.ComplaintFilters{Search: "100%"})
	require.NoError(t, err)
	require.Len(t, byPercent, 1)
	assert.Equal(t, peer.ID, byPercent[0].ID)

	none, err := complaints.All(ctx, model.ComplaintFilters{Search: "wifi", Status: model.StatusResolved})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestComplaintSearchFoldsNonASCIICase(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	student := testutil.SeedProfile(t, db, model.RoleStudent)
	complaints := repository.NewComplaintRepository(db)

	_, err := db.Exec(`UPDATE profiles SET full_name = $1 WHERE id = $2`, "Élodie Müller", student.ID)
	require.NoError(t, err)
	c := newComplaint(student.ID, "Ärger mit dem Mentor", time.Now().UTC())
	require.NoError(t, complaints.Create(ctx, c))

	for _, term := range []string{"élodie", "ÉLODIE", "müller", "ärger"} {
		found, err := complaints.All(ctx, model.ComplaintFilters{Search: term})
		require.NoError(t, err, term)
		require.Len(t, found, 1, term)
		assert.Equal(t, c.ID, found[0].ID)
	}
}

func TestComplaintUpdateStatusAppendsLedgerEntry(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	student := testutil.SeedProfile(t, db, model.RoleStudent)
	admin := testutil.SeedProfile(t, db, model.RoleAdmin)
	complaints := repository.NewComplaintRepository(db)
	history := repository.NewHistoryRepository(db)

	c := newComplaint(student.ID, "Status test", time.Now().UTC())
	require.NoError(t, complaints.Create(ctx, c))

	note := "Looking into it"
	updated, err := complaints.UpdateStatus(ctx, repository.StatusChange{
		ComplaintID: c.ID,
		ChangedBy:   admin.ID,
		From:        model.StatusOpen,
		To:          model.StatusInProgress,
		Note:        &note,
		At:          time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, updated.Status)
	require.NotNil(t, updated.AdminNote)
	assert.Equal(t, note, *updated.AdminNote)

	entries, err := history.ByComplaint(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[1].FromStatus)
	assert.Equal(t, model.StatusOpen, *entries[1].FromStatus)
	assert.Equal(t, model.StatusInProgress, entries[1].ToStatus)
	assert.Equal(t, admin.ID, entries[1].ChangedByUserID)
	require.NotNil(t, entries[1].NoteSnapshot)
	assert.Equal(t, note, *entries[1].NoteSnapshot)
	assert.Equal(t, 2, entries[1].Seq)
}

func TestComplaintUpdateStatusStaleFromIsConflict(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	student := testutil.SeedProfile(t, db, model.RoleStudent)
	admin := testutil.SeedProfile(t, db, model.RoleAdmin)
	complaints := repository.NewComplaintRepository(db)

	c := newComplaint(student.ID, "Race", time.Now().UTC())
	require.NoError(t, complaints.Create(ctx, c))

	_, err := complaints.UpdateStatus(ctx, repository.StatusChange{
		ComplaintID: c.ID,
		ChangedBy:   admin.ID,
		From:        model.StatusInProgress,
		To:          model.StatusResolved,
		At:          time.Now().UTC(),
	})
	assert.ErrorIs(t, err, repository.ErrStatusConflict)
	assert.Equal(t, 1, testutil.CountRows(t, db, "complaint_status_history", "complaint_id = $1", c.ID))
}

func TestComplaintUpdateStatusNeverTouchesResolvedRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	student := testutil.SeedProfile(t, db, model.RoleStudent)
	admin := testutil.SeedProfile(t, db, model.RoleAdmin)
	complaints := repository.NewComplaintRepository(db)

	c := newComplaint(student.ID, "Frozen", time.Now().UTC())
	require.NoError(t, complaints.Create(ctx, c))

	note := "Refunded"
	_, err := complaints.UpdateStatus(ctx, repository.StatusChange{
		ComplaintID: c.ID, ChangedBy: admin.ID,
		From: model.StatusOpen, To: model.StatusResolved, Note: &note, At: time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = complaints.UpdateStatus(ctx, repository.StatusChange{
		ComplaintID: c.ID, ChangedBy: admin.ID,
		From: model.StatusResolved, To: model.StatusOpen, At: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, repository.ErrStatusConflict)

	got, err := complaints.ByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, got.Status)
	assert.Equal(t, 2, testutil.CountRows(t, db, "complaint_status_history", "complaint_id = $1", c.ID))
}

func TestComplaintUpdateStatusRollsBackWhenLedgerAppendFails(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	student := testutil.SeedProfile(t, db, model.RoleStudent)
	complaints := repository.NewComplaintRepository(db)

	c := newComplaint(student.ID, "Atomic", time.Now().UTC())
	require.NoError(t, complaints.Create(ctx, c))

	// No such profile: the ledger insert fails on its foreign key after the UPDATE ran.
	note := "Looking into it"
	_, err := complaints.UpdateStatus(ctx, repository.StatusChange{
		ComplaintID: c.ID,
		ChangedBy:   "missing-admin",
		From:        model.StatusOpen,
		To:          model.StatusInProgress,
		Note:        &note,
		At:          time.Now().UTC(),
	})
	require.Error(t, err)

	got, err := complaints.ByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, got.Status)
	assert.Nil(t, got.AdminNote)
	assert.Equal(t, 1, testutil.CountRows(t, db, "complaint_status_history", "complaint_id = $1", c.ID))
}

func TestComplaintCountByStatus(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	student := testutil.SeedProfile(t, db, model.RoleStudent)
	admin := testutil.SeedProfile(t, db, model.RoleAdmin)
	complaints := repository.NewComplaintRepository(db)

	for i := 0; i < 3; i++ {
		require.NoError(t, complaints.Create(ctx, newComplaint(student.ID, "open one", time.Now().UTC())))
	}
	c := newComplaint(student.ID, "moving", time.Now().UTC())
	require.NoError(t, complaints.Create(ctx, c))
	_, err := complaints.UpdateStatus(ctx, repository.StatusChange{
		ComplaintID: c.ID, ChangedBy: admin.ID, From: model.StatusOpen, To: model.StatusInProgress, At: time.Now().UTC(),
	})
	require.NoError(t, err)

	counts, err := complaints.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.Status]int{
		model.StatusOpen:       3,
		model.StatusInProgress: 1,
		model.StatusResolved:   0,
	}, counts)
}

func TestSchemaRejectsValuesOutsideClosedSets(t *testing.T) {
	db := testutil.NewDB(t)
	student := testutil.SeedProfile(t, db, model.RoleStudent)
	now := time.Now().UTC()

	insert := `INSERT INTO complaints (id, student_id, title, category, description, status, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := db.Exec(insert, uuid.New().String(), student.ID, "t", "mentor", "d", "closed", now, now)
	assert.Error(t, err, "unknown status must fail at the storage layer")

	_, err = db.Exec(insert, uuid.New().String(), student.ID, "t", "billing", "d", "open", now, now)
	assert.Error(t, err, "unknown category must fail at the storage layer")

	_, err = db.Exec(insert, uuid.New().String(), student.ID, "", "mentor", "d", "open", now, now)
	assert.Error(t, err, "empty title must fail at the storage layer")

	_, err = db.Exec(insert, uuid.New().String(), student.ID, "t", "mentor", "d", "open", now, now)
	assert.NoError(t, err)
}
