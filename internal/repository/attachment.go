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
	ErrAttachmentNotFound    = errors.New("attachment not found")
	ErrAttachmentUnavailable = errors.New("attachment is missing, owned by someone else, or already linked")
)

type AttachmentRepository interface {
	Create(ctx context.Context, attachment *model.Attachment) error
	ByID(ctx context.Context, id string) (*model.Attachment, error)
	ByIDForOwner(ctx context.Context, id, ownerID string) (*model.Attachment, error)
	StoredPaths(ctx context.Context, prefix string) ([]string, error)
	Unlinked(ctx context.Context, createdBefore time.Time) ([]*model.Attachment, error)
}

type attachmentRepository struct {
	db *sqlx.DB
}

func NewAttachmentRepository(db *sqlx.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *model.Attachment) error {
	query := `INSERT INTO attachments (id, owner_user_id, complaint_id, original_filename, stored_path, mime_type, byte_size, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		attachment.ID,
		attachment.OwnerUserID,
		attachment.ComplaintID,
		attachment.OriginalFilename,
		attachment.StoredPath,
		attachment.MimeType,
		attachment.ByteSize,
		attachment.CreatedAt,
	)
	if err != nil && (isIntegrityViolation(err) || isUniqueViolation(err)) {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}

	return err
}

func (r *attachmentRepository) ByID(ctx context.Context, id string) (*model.Attachment, error) {
	attachment := &model.Attachment{}
	err := r.db.GetContext(ctx, attachment, `SELECT * FROM attachments WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, err
	}

	return attachment, nil
}

// ByIDForOwner only returns the attachment when ownerID uploaded it.
func (r *attachmentRepository) ByIDForOwner(ctx context.Context, id, ownerID string) (*model.Attachment, error) {
	attachment := &model.Attachment{}
	query := `SELECT * FROM attachments WHERE id = $1 AND owner_user_id = $2`

	err := r.db.GetContext(ctx, attachment, query, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, err
	}

	return attachment, nil
}

func (r *attachmentRepository) StoredPaths(ctx context.Context, prefix string) ([]string, error) {
	paths := []string{}
	query := `SELECT stored_path FROM attachments WHERE stored_path LIKE $1 ESCAPE '\' ORDER BY stored_path`

	err := r.db.SelectContext(ctx, &paths, query, escapeLike(prefix)+"%")
	if err != nil {
		return nil, err
	}

	return paths, nil
}

// Unlinked lists attachment records that were never attached to a complaint.
func (r *attachmentRepository) Unlinked(ctx context.Context, createdBefore time.Time) ([]*model.Attachment, error) {
	attachments := []*model.Attachment{}
	query := `SELECT * FROM attachments WHERE complaint_id IS NULL AND created_at < $1 ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &attachments, query, createdBefore.UTC())
	if err != nil {
		return nil, err
	}

	return attachments, nil
}

// linkAttachment sets the complaint back-reference. It runs inside the complaint
// insert transaction and succeeds only for the owner's not-yet-linked attachment.
func linkAttachment(ctx context.Context, tx *sqlx.Tx, attachmentID, ownerID, complaintID string) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE attachments
		SET complaint_id = $1
		WHERE id = $2 AND owner_user_id = $3 AND complaint_id IS NULL
	`, complaintID, attachmentID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to link attachment: %w", err)
	}

	return expectOneRow(result, ErrAttachmentUnavailable)
}
