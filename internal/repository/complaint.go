package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studentdesk/complaints/internal/model"
)

var (
	ErrComplaintNotFound = errors.New("complaint not found")
	// ErrStatusConflict means the complaint's status changed between read and write.
	ErrStatusConflict = errors.New("complaint status changed concurrently")
)

// StatusChange describes one admin transition. From must be the status the
// caller observed; the update is rejected with ErrStatusConflict otherwise.
type StatusChange struct {
	ComplaintID string
	ChangedBy   string
	From        model.Status
	To          model.Status
	Note        *string
	At          time.Time
}

type ComplaintRepository interface {
	Create(ctx context.Context, complaint *model.Complaint) error
	ByID(ctx context.Context, id string) (*model.Complaint, error)
	ByIDForStudent(ctx context.Context, id, studentID string) (*model.Complaint, error)
	ByStudent(ctx context.Context, studentID string) ([]*model.Complaint, error)
	All(ctx context.Context, filters model.ComplaintFilters) ([]*model.ComplaintListItem, error)
	UpdateStatus(ctx context.Context, change StatusChange) (*model.Complaint, error)
	CountByStatus(ctx context.Context) (map[model.Status]int, error)
}

type complaintRepository struct {
	db *sqlx.DB
}

func NewComplaintRepository(db *sqlx.DB) ComplaintRepository {
	return &complaintRepository{db: db}
}

// Create inserts the complaint, links its attachment and writes the opening
// ledger entry in a single transaction.
func (r *complaintRepository) Create(ctx context.Context, complaint *model.Complaint) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Claim the attachment first so a foreign or reused id fails before the insert
	if complaint.AttachmentID != nil {
		err = linkAttachment(ctx, tx, *complaint.AttachmentID, complaint.StudentID, complaint.ID)
		if err != nil {
			return err
		}
	}

	query := `INSERT INTO complaints (id, student_id, title, category, description, attachment_id, status, admin_note, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.ExecContext(ctx, query,
		complaint.ID,
		complaint.StudentID,
		complaint.Title,
		string(complaint.Category),
		complaint.Description,
		complaint.AttachmentID,
		string(complaint.Status),
		complaint.AdminNote,
		complaint.CreatedAt,
		complaint.UpdatedAt,
	)
	if err != nil {
		if isIntegrityViolation(err) {
			return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
		}
		return fmt.Errorf("failed to insert complaint: %w", err)
	}

	err = appendHistory(ctx, tx, &model.StatusHistoryEntry{
		ComplaintID:     complaint.ID,
		ChangedByUserID: complaint.StudentID,
		FromStatus:      nil,
		ToStatus:        complaint.Status,
		NoteSnapshot:    complaint.AdminNote,
		ChangedAt:       complaint.CreatedAt,
	})
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *complaintRepository) ByID(ctx context.Context, id string) (*model.Complaint, error) {
	return getComplaint(ctx, r.db, `SELECT * FROM complaints WHERE id = $1`, id)
}

// ByIDForStudent applies the owner predicate in SQL so a student can never load
// another student's row.
func (r *complaintRepository) ByIDForStudent(ctx context.Context, id, studentID string) (*model.Complaint, error) {
	return getComplaint(ctx, r.db, `SELECT * FROM complaints WHERE id = $1 AND student_id = $2`, id, studentID)
}

func (r *complaintRepository) ByStudent(ctx context.Context, studentID string) ([]*model.Complaint, error) {
	complaints := []*model.Complaint{}
	query := `SELECT * FROM complaints WHERE student_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &complaints, query, studentID)
	if err != nil {
		return nil, err
	}

	return complaints, nil
}

// All returns every complaint joined with its student, newest first.
// Search matches title, description, and the student's name or email.
func (r *complaintRepository) All(ctx context.Context, filters model.ComplaintFilters) ([]*model.ComplaintListItem, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Status != "" {
		where = append(where, "c.status = "+arg(string(filters.Status)))
	}
	if filters.Category != "" {
		where = append(where, "c.category = "+arg(string(filters.Category)))
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		var matches []string
		for _, column := range []string{"c.title", "c.description", "p.full_name", "p.email"} {
			matches = append(matches, fmt.Sprintf(`LOWER(%s) LIKE %s ESCAPE '\'`, column, arg(pattern)))
		}
		where = append(where, "("+strings.Join(matches, " OR ")+")")
	}

	query := `SELECT c.*, p.full_name AS student_name, p.email AS student_email
	          FROM complaints c
	          JOIN profiles p ON p.id = c.student_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.created_at DESC"

	items := []*model.ComplaintListItem{}
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		return nil, err
	}

	return items, nil
}

// UpdateStatus writes the new status and note and appends the ledger entry in
// one transaction. The write is a compare-and-set on change.From, and a
// resolved row is never touched.
func (r *complaintRepository) UpdateStatus(ctx context.Context, change StatusChange) (*model.Complaint, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE complaints
		SET status = $1, admin_note = $2, updated_at = $3
		WHERE id = $4 AND status = $5 AND status <> $6
	`, string(change.To), change.Note, change.At, change.ComplaintID, string(change.From), string(model.StatusResolved))
	if err != nil {
		if isIntegrityViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrConstraintViolation, err)
		}
		return nil, fmt.Errorf("failed to update complaint status: %w", err)
	}

	err = expectOneRow(result, ErrStatusConflict)
	if err != nil {
		return nil, err
	}

	from := change.From
	err = appendHistory(ctx, tx, &model.StatusHistoryEntry{
		ComplaintID:     change.ComplaintID,
		ChangedByUserID: change.ChangedBy,
		FromStatus:      &from,
		ToStatus:        change.To,
		NoteSnapshot:    change.Note,
		ChangedAt:       change.At,
	})
	if err != nil {
		return nil, err
	}

	complaint, err := getComplaint(ctx, tx, `SELECT * FROM complaints WHERE id = $1`, change.ComplaintID)
	if err != nil {
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, err
	}

	return complaint, nil
}

func (r *complaintRepository) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	var rows []struct {
		Status model.Status `db:"status"`
		Count  int          `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM complaints GROUP BY status`)
	if err != nil {
		return nil, err
	}

	counts := make(map[model.Status]int, len(model.Statuses))
	for _, status := range model.Statuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}

func getComplaint(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (*model.Complaint, error) {
	complaint := &model.Complaint{}
	err := sqlx.GetContext(ctx, q, complaint, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrComplaintNotFound
	}
	if err != nil {
		return nil, err
	}

	return complaint, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func newID() string {
	return uuid.New().String()
}
