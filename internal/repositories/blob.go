package repositories

import (
	"context"
	"io"
)

// BlobStore is the external file store: contents live here, metadata lives
// in the catalog. Keys are opaque strings chosen at upload time.
type BlobStore interface {
	Store(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}
