package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studentdesk/complaints/internal/model"
)

// ErrPathNotOwned is returned when a principal writes outside its own prefix.
var ErrPathNotOwned = errors.New("path is outside the writer's prefix")

// OwnerPath builds a collision-free blob path: <owner>/<unix-nanos>-<uuid><ext>.
func OwnerPath(ownerID, mimeType string, now time.Time) string {
	return fmt.Sprintf("%s/%d-%s%s", ownerID, now.UnixNano(), uuid.New().String(), model.AttachmentExtensions[mimeType])
}

// PathTime recovers the write time OwnerPath encoded in a blob name.
// ok is false for names that do not carry one.
func PathTime(blobPath string) (t time.Time, ok bool) {
	stamp, _, found := strings.Cut(path.Base(blobPath), "-")
	if !found {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}

// AuthorizeWrite checks that the first path segment equals the writer's id.
func AuthorizeWrite(principalID, path string) error {
	if principalID == "" {
		return ErrPathNotOwned
	}
	owner, rest, ok := strings.Cut(path, "/")
	if !ok || rest == "" || owner != principalID {
		return ErrPathNotOwned
	}
	return nil
}

// SaveOwned writes content at path on behalf of principalID, refusing any
// path whose first segment is not that principal.
func SaveOwned(ctx context.Context, s Storage, principalID, path string, content io.Reader) error {
	if err := AuthorizeWrite(principalID, path); err != nil {
		return err
	}
	return s.Save(ctx, path, content)
}
