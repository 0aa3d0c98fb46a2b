package model

import (
	"time"
)

const (
	MimeTypePDF  = "application/pdf"
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"

	MaxAttachmentSize = 10 << 20 // 10,485,760 bytes
)

// AttachmentExtensions maps every accepted mime type to the extension used for stored blobs.
var AttachmentExtensions = map[string]string{
	MimeTypePDF:  ".pdf",
	MimeTypeJPEG: ".jpg",
	MimeTypePNG:  ".png",
}

type Attachment struct {
	ID               string    `db:"id" json:"id"`
	OwnerUserID      string    `db:"owner_user_id" json:"owner_user_id"`
	ComplaintID      *string   `db:"complaint_id" json:"complaint_id"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	StoredPath       string    `db:"stored_path" json:"-"`
	MimeType         string    `db:"mime_type" json:"mime_type"`
	ByteSize         int64     `db:"byte_size" json:"byte_size"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
