package model

import (
	"time"
)

// StatusHistoryEntry is one immutable row of a complaint's ledger.
// FromStatus is nil for the entry written when the complaint is created.
type StatusHistoryEntry struct {
	ID              string    `db:"id" json:"id"`
	ComplaintID     string    `db:"complaint_id" json:"complaint_id"`
	Seq             int       `db:"seq" json:"seq"`
	ChangedByUserID string    `db:"changed_by_user_id" json:"changed_by_user_id"`
	FromStatus      *Status   `db:"from_status" json:"from_status"`
	ToStatus        Status    `db:"to_status" json:"to_status"`
	NoteSnapshot    *string   `db:"note_snapshot" json:"note_snapshot"`
	ChangedAt       time.Time `db:"changed_at" json:"changed_at"`
}
