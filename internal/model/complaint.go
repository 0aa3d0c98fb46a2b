package model

import (
	"time"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusResolved
}

// CanTransitionTo reports whether an admin may move a complaint from s to next.
// Staying in the same non-terminal status is allowed (note-only edit).
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() || s.IsTerminal() {
		return false
	}
	return true
}

type Category string

const (
	CategoryMentor             Category = "mentor"
	CategoryAdmin              Category = "admin"
	CategoryAcademicCounsellor Category = "academic_counsellor"
	CategoryWorkingHub         Category = "working_hub"
	CategoryPeer               Category = "peer"
	CategoryOther              Category = "other"
)

var Categories = []Category{
	CategoryMentor,
	CategoryAdmin,
	CategoryAcademicCounsellor,
	CategoryWorkingHub,
	CategoryPeer,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Complaint struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Title        string    `db:"title" json:"title"`
	Category     Category  `db:"category" json:"category"`
	Description  string    `db:"description" json:"description"`
	AttachmentID *string   `db:"attachment_id" json:"attachment_id"`
	Status       Status    `db:"status" json:"status"`
	AdminNote    *string   `db:"admin_note" json:"admin_note"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ComplaintListItem is a complaint joined with its owning student for the admin queue.
type ComplaintListItem struct {
	Complaint
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}

type ComplaintFilters struct {
	Status   Status
	Category Category
	Search   string
}
