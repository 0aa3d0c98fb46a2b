package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/studentdesk/complaints/internal/config"
)

var (
	ErrObjectNotFound     = errors.New("object not found")
	ErrPresignUnsupported = errors.New("storage backend cannot issue download URLs")
	ErrInvalidPath        = errors.New("invalid object path")
)

// Storage is a path-addressed blob store. Paths use forward slashes and the
// first segment is always the owning principal's id.
type Storage interface {
	// Save stores content at path
	Save(ctx context.Context, path string, content io.Reader) error

	// Open streams the object at path. Callers must close the reader.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	Delete(ctx context.Context, path string) error

	// List returns every object path starting with prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// URL returns a time-limited download URL, or ErrPresignUnsupported
	URL(ctx context.Context, path string) (string, error)
}

// New builds the blob backend selected by STORAGE_DRIVER.
func New(ctx context.Context, c *config.Config) (Storage, error) {
	switch c.StorageDriver {
	case "s3":
		slog.Info("initializing S3 storage",
			"bucket", c.S3Bucket,
			"region", c.S3Region,
			"endpoint", c.S3Endpoint,
		)
		return NewS3Storage(ctx, S3Config{
			Region:        c.S3Region,
			Bucket:        c.S3Bucket,
			AccessKey:     c.S3AccessKey,
			SecretKey:     c.S3SecretKey,
			Endpoint:      c.S3Endpoint,
			PresignExpiry: c.S3PresignExpiry,
		})
	case "local":
		slog.Info("initializing local storage", "path", c.StorageLocalPath)
		return NewLocalStorage(c.StorageLocalPath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
}
