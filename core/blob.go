package core

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore stores binary objects under slash-separated keys.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	// Get returns ErrBlobNotFound when the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Copy returns ErrBlobNotFound when srcKey does not exist.
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
	// URL is the public address of the key.
	URL(key string) string
}
