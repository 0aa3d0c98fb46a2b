package validation

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/studentdesk/complaints/internal/model"
)

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	AllowedMimeTypes  map[string]bool
	MaxSize           int64
	MaxFilenameLength int
}

// AttachmentConstraints are the rules for complaint evidence: PDFs and photos up to 10 MiB.
var AttachmentConstraints = FileConstraints{
	AllowedMimeTypes: map[string]bool{
		model.MimeTypePDF:  true,
		model.MimeTypeJPEG: true,
		model.MimeTypePNG:  true,
	},
	MaxSize:           model.MaxAttachmentSize,
	MaxFilenameLength: 255,
}

// FileError identifies which part of an upload failed validation.
type FileError struct {
	Field   string
	Message string
}

func (e *FileError) Error() string {
	return e.Message
}

// ValidateFile checks a declared upload against the constraints before anything is stored.
// The sniffed content type must agree with the declared mime type, so renaming a
// file or forging the Content-Type header is not enough.
func ValidateFile(filename, mimeType string, content []byte, constraints FileConstraints) error {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return &FileError{Field: "filename", Message: "file name is required"}
	}
	if utf8.RuneCountInString(filename) > constraints.MaxFilenameLength {
		return &FileError{Field: "filename", Message: fmt.Sprintf("file name is too long (max %d characters)", constraints.MaxFilenameLength)}
	}

	if !constraints.AllowedMimeTypes[mimeType] {
		return &FileError{Field: "mime_type", Message: fmt.Sprintf("file type %q is not allowed", mimeType)}
	}

	if len(content) == 0 {
		return &FileError{Field: "file", Message: "file is empty"}
	}
	if int64(len(content)) > constraints.MaxSize {
		return &FileError{Field: "file", Message: fmt.Sprintf("file too large: maximum size is %s", humanize.IBytes(uint64(constraints.MaxSize)))}
	}

	// http.DetectContentType reads at most 512 bytes
	detected := http.DetectContentType(content)
	if detected != mimeType {
		return &FileError{Field: "file", Message: fmt.Sprintf("file content does not match declared type (detected: %s)", detected)}
	}

	return nil
}

// IsFileError reports whether err came from ValidateFile.
func IsFileError(err error) bool {
	var fe *FileError
	return errors.As(err, &fe)
}
