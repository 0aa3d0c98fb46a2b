package service

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/studentdesk/complaints/internal/model"
	"github.com/studentdesk/complaints/internal/repository"
	"github.com/studentdesk/complaints/internal/storage"
	"github.com/studentdesk/complaints/internal/testutil"
)

type fixture struct {
	db          *sqlx.DB
	store       *storage.LocalStorage
	profiles    repository.ProfileRepository
	identity    *IdentityService
	policy      *Policy
	complaints  *ComplaintService
	history     *HistoryService
	attachments *AttachmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	profiles := repository.NewProfileRepository(db)
	identity := NewIdentityService(profiles, NewMemoryRoleCache(time.Minute))
	policy := NewPolicy(identity)
	complaints := NewComplaintService(policy, repository.NewComplaintRepository(db))

	return &fixture{
		db:          db,
		store:       store,
		profiles:    profiles,
		identity:    identity,
		policy:      policy,
		complaints:  complaints,
		history:     NewHistoryService(policy, complaints, repository.NewHistoryRepository(db)),
		attachments: NewAttachmentService(policy, repository.NewAttachmentRepository(db), store),
	}
}

func (f *fixture) student(t *testing.T) *model.Profile {
	return testutil.SeedProfile(t, f.db, model.RoleStudent)
}

func (f *fixture) admin(t *testing.T) *model.Profile {
	return testutil.SeedProfile(t, f.db, model.RoleAdmin)
}

func (f *fixture) file(t *testing.T, studentID string) *model.Complaint {
	t.Helper()
	c, err := f.complaints.Create(testContext(t), studentID, CreateComplaintInput{
		Title:       "Mentor absent",
		Category:    model.CategoryMentor,
		Description: "My mentor has missed three sessions.",
	})
	require.NoError(t, err)
	return c
}

func ptr[T any](v T) *T {
	return &v
}

// syncBuffer lets tests capture slog output written from the code under test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return buf
}
