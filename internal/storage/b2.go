package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// B2Config encapsulates the connection info for the Backblaze B2
// S3-compatible endpoint.
type B2Config struct {
	Endpoint       string
	KeyID          string
	ApplicationKey string
	Region         string
	UseSSL         bool
}

// B2Client implements ObjectStorage for Backblaze B2 via its S3-compatible
// API. A single client is safe for concurrent use.
type B2Client struct {
	client *minio.Client

	// bucket name -> opaque location constraint, populated lazily on the
	// first existence probe so repeated transfers against the same bucket
	// skip the lookup. Cleared by Close.
	locations sync.Map
}

// NewB2Client builds a new B2Client. Credentials and endpoint are validated
// before anything touches the network.
func NewB2Client(cfg B2Config) (*B2Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("b2 endpoint must be provided")
	}
	if cfg.KeyID == "" || cfg.ApplicationKey == "" {
		return nil, fmt.Errorf("b2 credentials must be provided")
	}

	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.KeyID, cfg.ApplicationKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("b2 client setup failed: %w", err)
	}

	return &B2Client{client: client}, nil
}

// BucketExists probes the bucket and caches its location constraint.
func (c *B2Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if _, ok := c.locations.Load(bucket); ok {
		return true, nil
	}

	location, err := c.client.GetBucketLocation(ctx, bucket)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("b2 bucket lookup failed: %w", err)
	}

	c.locations.Store(bucket, location)
	return true, nil
}

// StatObject returns metadata for a key without downloading content.
func (c *B2Client) StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	info, err := c.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return ObjectInfo{}, fmt.Errorf("stat %s: %w", key, ErrObjectNotFound)
		}
		return ObjectInfo{}, fmt.Errorf("b2 stat failed for %s: %w", key, err)
	}

	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		LastModified: info.LastModified,
		ContentType:  info.ContentType,
	}, nil
}

// GetObject opens a streaming reader for a key.
func (c *B2Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	// minio defers missing-key errors until the first read; stat up front so
	// callers get ErrObjectNotFound before any bytes move.
	if _, err := c.StatObject(ctx, bucket, key); err != nil {
		return nil, err
	}

	object, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("b2 download failed for %s: %w", key, err)
	}
	return object, nil
}

// PutObject uploads size bytes from reader under the given key.
func (c *B2Client) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	_, err := c.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("b2 upload failed for %s: %w", key, err)
	}
	return nil
}

// Close drops the cached bucket locations. The underlying HTTP client holds
// no resources that outlive its idle connections.
func (c *B2Client) Close() error {
	c.locations.Range(func(key, _ any) bool {
		c.locations.Delete(key)
		return true
	})
	return nil
}

var _ ObjectStorage = (*B2Client)(nil)

// isNotFound reports whether err is the S3 way of saying the bucket or key
// does not exist.
func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return true
	}
	return resp.StatusCode == 404
}
