package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Head and Download when the bucket
// holds no object under the given key.
var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key  string
	Size int64
}

type Storage interface {
	Upload(ctx context.Context, bucket, key string, data io.Reader, contentType string) error
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	// Head checks existence without fetching the body.
	Head(ctx context.Context, bucket, key string) error
	// List returns the objects whose keys start with prefix.
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, bucket, key string) error
}
