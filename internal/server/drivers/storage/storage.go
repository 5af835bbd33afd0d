// Package storage abstracts the object store holding avatars and uploads.
package storage

import (
	"context"
	"io"
	"time"
)

type Storage interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	// SignedUploadURL returns a presigned PUT URL so clients upload directly
	// to the store instead of through the API.
	SignedUploadURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
