package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	mem := NewMemory("bucket")
	ctx := context.Background()

	content := "artifact bytes"
	err := mem.PutObject(ctx, "bucket", "releases/a.jar", strings.NewReader(content), int64(len(content)), "application/octet-stream")
	require.NoError(t, err)

	info, err := mem.StatObject(ctx, "bucket", "releases/a.jar")
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, "application/octet-stream", info.ContentType)
	assert.WithinDuration(t, time.Now(), info.LastModified, time.Minute)

	reader, err := mem.GetObject(ctx, "bucket", "releases/a.jar")
	require.NoError(t, err)
	defer reader.Close()

	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestMemoryNotFound(t *testing.T) {
	mem := NewMemory("bucket")
	ctx := context.Background()

	_, err := mem.StatObject(ctx, "bucket", "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = mem.GetObject(ctx, "bucket", "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = mem.StatObject(ctx, "other-bucket", "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMemoryBucketExists(t *testing.T) {
	mem := NewMemory("bucket")
	ctx := context.Background()

	ok, err := mem.BucketExists(ctx, "bucket")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mem.BucketExists(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySizeMismatch(t *testing.T) {
	mem := NewMemory("bucket")
	err := mem.PutObject(context.Background(), "bucket", "a", strings.NewReader("abc"), 2, "")
	require.Error(t, err)
}

func TestMemorySetModTime(t *testing.T) {
	mem := NewMemory("bucket")
	ctx := context.Background()
	require.NoError(t, mem.PutObject(ctx, "bucket", "a", strings.NewReader("x"), 1, ""))

	stamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mem.SetModTime("bucket", "a", stamp)

	info, err := mem.StatObject(ctx, "bucket", "a")
	require.NoError(t, err)
	assert.True(t, info.LastModified.Equal(stamp))
}
