package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("object not found")

// StorageInterface is the object store behind listing images.
// Backends: mock (local filesystem served by the API) and s3.
type StorageInterface interface {
	// Save writes the object under key.
	Save(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Open returns the object's content. Missing keys yield ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether key exists and its size.
	Exists(ctx context.Context, key string) (bool, int64, error)

	Delete(ctx context.Context, key string) error

	// URL is the public URL clients use to fetch key.
	URL(key string) string
}
