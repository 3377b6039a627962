package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when the requested key does not exist in the
// bucket. Callers can rely on errors.Is to tell a missing artifact apart from
// a transport failure.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// ObjectStorage captures the minimal bucket operations the wagon needs.
type ObjectStorage interface {
	// BucketExists reports whether the bucket is reachable with the
	// configured credentials.
	BucketExists(ctx context.Context, bucket string) (bool, error)

	// StatObject returns metadata for a key without downloading content.
	// Returns ErrObjectNotFound if the key is absent.
	StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error)

	// GetObject opens a streaming reader for a key. The caller must close
	// the returned reader. Returns ErrObjectNotFound if the key is absent.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// PutObject uploads size bytes from reader under the given key with the
	// given content type. An empty content type lets the backend decide.
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error

	// Close releases the underlying client and any cached bucket state.
	Close() error
}
