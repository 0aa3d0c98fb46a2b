package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/studentdesk/complaints/internal/model"
)

const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 5000
	MaxNoteLength        = 5000
)

// ValidateTitle expects an already trimmed title
func ValidateTitle(title string) error {
	if title == "" {
		return errors.New("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title is too long (max %d characters)", MaxTitleLength)
	}
	return nil
}

func ValidateDescription(description string) error {
	if description == "" {
		return errors.New("description is required")
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("description is too long (max %d characters)", MaxDescriptionLength)
	}
	return nil
}

func ValidateCategory(category model.Category) error {
	if !category.Valid() {
		return fmt.Errorf("unknown category %q", category)
	}
	return nil
}

func ValidateStatus(status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("unknown status %q", status)
	}
	return nil
}

// ValidateAdminNote checks an admin note. Resolving a complaint requires a
// non-blank note explaining the outcome.
func ValidateAdminNote(note string, resolving bool) error {
	if resolving && strings.TrimSpace(note) == "" {
		return errors.New("a resolution note is required")
	}
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return fmt.Errorf("note is too long (max %d characters)", MaxNoteLength)
	}
	return nil
}
