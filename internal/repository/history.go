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

// HistoryRepository is read-only. Ledger rows are written exclusively by
// appendHistory inside the complaint create and status-update transactions.
type HistoryRepository interface {
	ByComplaint(ctx context.Context, complaintID string) ([]*model.StatusHistoryEntry, error)
}

type historyRepository struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) ByComplaint(ctx context.Context, complaintID string) ([]*model.StatusHistoryEntry, error) {
	entries := []*model.StatusHistoryEntry{}
	query := `SELECT * FROM complaint_status_history WHERE complaint_id = $1 ORDER BY changed_at ASC, seq ASC`

	err := r.db.SelectContext(ctx, &entries, query, complaintID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// appendHistory writes the next ledger entry for a complaint. Any error must
// abort the surrounding transaction.
func appendHistory(ctx context.Context, tx *sqlx.Tx, entry *model.StatusHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = newID()
	}

	// The ledger reads in changed_at order, so an entry never predates the one before it
	var last struct {
		Seq       int       `db:"seq"`
		ChangedAt time.Time `db:"changed_at"`
	}
	err := tx.GetContext(ctx, &last, `
		SELECT seq, changed_at FROM complaint_status_history
		WHERE complaint_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`, entry.ComplaintID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to allocate ledger sequence: %w", err)
	}
	entry.Seq = last.Seq + 1
	if entry.ChangedAt.Before(last.ChangedAt) {
		entry.ChangedAt = last.ChangedAt
	}

	var from *string
	if entry.FromStatus != nil {
		s := string(*entry.FromStatus)
		from = &s
	}

	query := `INSERT INTO complaint_status_history (id, complaint_id, seq, changed_by_user_id, from_status, to_status, note_snapshot, changed_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = tx.ExecContext(ctx, query,
		entry.ID,
		entry.ComplaintID,
		entry.Seq,
		entry.ChangedByUserID,
		from,
		string(entry.ToStatus),
		entry.NoteSnapshot,
		entry.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}

	return nil
}
