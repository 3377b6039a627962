package wagon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A-N-O-D-E-R/B2Wagon/internal/storage"
)

const testBucket = "releases"

// recordListener captures transfer events in order.
type recordListener struct {
	calls []string
}

func (r *recordListener) TransferInitiated(e TransferEvent) {
	r.calls = append(r.calls, "initiated:"+e.Resource)
}

func (r *recordListener) TransferStarted(e TransferEvent) {
	r.calls = append(r.calls, "started:"+e.Resource)
}

func (r *recordListener) TransferCompleted(e TransferEvent) {
	r.calls = append(r.calls, "completed:"+e.Resource)
}

func memDialer(mem *storage.Memory) DialFunc {
	return func(ctx context.Context, cfg storage.B2Config) (storage.ObjectStorage, error) {
		return mem, nil
	}
}

func newTestWagon(t *testing.T, opts ...Option) (*Wagon, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory(testBucket)
	opts = append([]Option{WithDialer(memDialer(mem))}, opts...)
	w := New(opts...)
	err := w.Connect(context.Background(), "b2://"+testBucket+"/repo", Credentials{KeyID: "key", ApplicationKey: "secret"})
	require.NoError(t, err)
	return w, mem
}

func writeLocalFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConnectMissingCredentials(t *testing.T) {
	dialed := false
	w := New(WithDialer(func(ctx context.Context, cfg storage.B2Config) (storage.ObjectStorage, error) {
		dialed = true
		return storage.NewMemory(testBucket), nil
	}))

	tests := []struct {
		name  string
		creds Credentials
	}{
		{name: "both missing", creds: Credentials{}},
		{name: "missing key", creds: Credentials{KeyID: "key"}},
		{name: "missing key id", creds: Credentials{ApplicationKey: "secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.Connect(context.Background(), "b2://"+testBucket, tt.creds)
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.False(t, dialed, "credential check must happen before dialing")
		})
	}
}

func TestConnectBadURL(t *testing.T) {
	w := New()
	err := w.Connect(context.Background(), "http://releases", Credentials{KeyID: "key", ApplicationKey: "secret"})
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
}

func TestConnectBucketNotFound(t *testing.T) {
	mem := storage.NewMemory(testBucket)
	w := New(WithDialer(memDialer(mem)))
	err := w.Connect(context.Background(), "b2://no-such-bucket", Credentials{KeyID: "key", ApplicationKey: "secret"})
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "no-such-bucket", connErr.Bucket)
}

func TestOperationsWhileDisconnected(t *testing.T) {
	w := New()
	ctx := context.Background()

	var connErr *ConnectionError
	assert.ErrorAs(t, w.Get(ctx, "a.jar", filepath.Join(t.TempDir(), "a.jar")), &connErr)
	assert.ErrorAs(t, w.Put(ctx, "a.jar", "a.jar"), &connErr)
	_, err := w.ResourceExists(ctx, "a.jar")
	assert.ErrorAs(t, err, &connErr)
	_, err = w.GetIfNewer(ctx, "a.jar", filepath.Join(t.TempDir(), "a.jar"), time.Now())
	assert.ErrorAs(t, err, &connErr)
}

func TestDisconnectEndsSession(t *testing.T) {
	w, _ := newTestWagon(t)
	w.Disconnect()

	var connErr *ConnectionError
	assert.ErrorAs(t, w.Get(context.Background(), "a.jar", filepath.Join(t.TempDir(), "a.jar")), &connErr)

	// Disconnecting twice is harmless.
	w.Disconnect()
}

func TestPutThenExists(t *testing.T) {
	w, _ := newTestWagon(t)
	ctx := context.Background()

	src := writeLocalFile(t, "app-1.0.jar", "jar bytes")
	require.NoError(t, w.Put(ctx, src, "com/example/app/1.0/app-1.0.jar"))

	found, err := w.ResourceExists(ctx, "com/example/app/1.0/app-1.0.jar")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = w.ResourceExists(ctx, "com/example/app/1.0/missing.jar")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPutThenGetRoundTrip(t *testing.T) {
	w, _ := newTestWagon(t)
	ctx := context.Background()

	content := "artifact payload \x00\x01\x02"
	src := writeLocalFile(t, "app-1.0.jar", content)
	require.NoError(t, w.Put(ctx, src, "app-1.0.jar"))

	dest := filepath.Join(t.TempDir(), "fetched", "app-1.0.jar")
	require.NoError(t, w.Get(ctx, "app-1.0.jar", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestPutResolvesUnderBasePath(t *testing.T) {
	w, mem := newTestWagon(t)
	src := writeLocalFile(t, "a.pom", "<project/>")
	require.NoError(t, w.Put(context.Background(), src, "a.pom"))

	_, err := mem.StatObject(context.Background(), testBucket, "repo/a.pom")
	require.NoError(t, err)
}

func TestPutAttachesContentType(t *testing.T) {
	w, mem := newTestWagon(t)
	ctx := context.Background()

	tests := []struct {
		resource string
		want     string
	}{
		{resource: "a.pom", want: "application/xml"},
		{resource: "a.jar", want: "application/octet-stream"},
		{resource: "a.jar.sha1", want: "text/plain"},
		{resource: "a.bin", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.resource, func(t *testing.T) {
			src := writeLocalFile(t, "payload", "data")
			require.NoError(t, w.Put(ctx, src, tt.resource))

			info, err := mem.StatObject(ctx, testBucket, "repo/"+tt.resource)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.ContentType)
		})
	}
}

func TestGetNotFound(t *testing.T) {
	w, _ := newTestWagon(t)

	err := w.Get(context.Background(), "missing.jar", filepath.Join(t.TempDir(), "missing.jar"))
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing.jar", notFound.Resource)

	var transferErr *TransferError
	assert.False(t, errors.As(err, &transferErr), "missing keys must not surface as generic transfer errors")
}

func TestGetLeavesNoTempFiles(t *testing.T) {
	w, _ := newTestWagon(t)
	ctx := context.Background()

	src := writeLocalFile(t, "app-1.0.jar", "jar bytes")
	require.NoError(t, w.Put(ctx, src, "app-1.0.jar"))

	destDir := t.TempDir()
	require.NoError(t, w.Get(ctx, "app-1.0.jar", filepath.Join(destDir, "app-1.0.jar")))

	entries, err := os.ReadDir(destDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "app-1.0.jar", entries[0].Name())
}

func TestGetIfNewer(t *testing.T) {
	w, mem := newTestWagon(t)
	ctx := context.Background()

	src := writeLocalFile(t, "a.jar", "jar bytes")
	require.NoError(t, w.Put(ctx, src, "a.jar"))
	uploaded := time.Now()
	mem.SetModTime(testBucket, "repo/a.jar", uploaded)

	t.Run("reference newer than remote skips transfer", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "a.jar")
		fetched, err := w.GetIfNewer(ctx, "a.jar", dest, uploaded.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, fetched)
		assert.NoFileExists(t, dest)
	})

	t.Run("reference equal to remote skips transfer", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "a.jar")
		fetched, err := w.GetIfNewer(ctx, "a.jar", dest, uploaded)
		require.NoError(t, err)
		assert.False(t, fetched)
		assert.NoFileExists(t, dest)
	})

	t.Run("remote newer than reference transfers", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "a.jar")
		fetched, err := w.GetIfNewer(ctx, "a.jar", dest, uploaded.Add(-time.Hour))
		require.NoError(t, err)
		assert.True(t, fetched)
		assert.FileExists(t, dest)
	})

	t.Run("missing resource", func(t *testing.T) {
		_, err := w.GetIfNewer(ctx, "missing.jar", filepath.Join(t.TempDir(), "missing.jar"), uploaded)
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
	})
}

// brokenStat wraps a working store with a stat that always fails with a
// transport error, to exercise the assume-stale path.
type brokenStat struct {
	storage.ObjectStorage
}

func (b brokenStat) StatObject(context.Context, string, string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{}, errors.New("metadata service unavailable")
}

func TestGetIfNewerAssumesStaleOnStatFailure(t *testing.T) {
	mem := storage.NewMemory(testBucket)
	w := New(WithDialer(func(ctx context.Context, cfg storage.B2Config) (storage.ObjectStorage, error) {
		return brokenStat{ObjectStorage: mem}, nil
	}))
	ctx := context.Background()
	require.NoError(t, w.Connect(ctx, "b2://"+testBucket, Credentials{KeyID: "key", ApplicationKey: "secret"}))

	require.NoError(t, mem.PutObject(ctx, testBucket, "a.jar", strings.NewReader("jar bytes"), int64(len("jar bytes")), ""))

	dest := filepath.Join(t.TempDir(), "a.jar")
	fetched, err := w.GetIfNewer(ctx, "a.jar", dest, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, fetched, "an unreadable timestamp must be treated as stale")
	assert.FileExists(t, dest)
}

func TestTransferEvents(t *testing.T) {
	listener := &recordListener{}
	w, _ := newTestWagon(t, WithListener(listener))
	ctx := context.Background()

	src := writeLocalFile(t, "a.jar", "jar bytes")
	require.NoError(t, w.Put(ctx, src, "a.jar"))
	assert.Equal(t, []string{"initiated:a.jar", "started:a.jar", "completed:a.jar"}, listener.calls)

	listener.calls = nil
	require.NoError(t, w.Get(ctx, "a.jar", filepath.Join(t.TempDir(), "a.jar")))
	assert.Equal(t, []string{"initiated:a.jar", "started:a.jar", "completed:a.jar"}, listener.calls)

	listener.calls = nil
	_ = w.Get(ctx, "missing.jar", filepath.Join(t.TempDir(), "missing.jar"))
	assert.Equal(t, []string{"initiated:missing.jar", "started:missing.jar"}, listener.calls,
		"initiated and started still fire on a failed transfer, completed does not")
}

// keepOpen makes a shared store survive the close of a replaced session.
type keepOpen struct {
	storage.ObjectStorage
}

func (keepOpen) Close() error { return nil }

func TestReconnectRepointsLocation(t *testing.T) {
	mem := storage.NewMemory(testBucket)
	w := New(WithDialer(func(ctx context.Context, cfg storage.B2Config) (storage.ObjectStorage, error) {
		return keepOpen{ObjectStorage: mem}, nil
	}))
	ctx := context.Background()
	creds := Credentials{KeyID: "key", ApplicationKey: "secret"}

	require.NoError(t, w.Connect(ctx, "b2://"+testBucket+"/maven-releases", creds))
	src := writeLocalFile(t, "a.jar", "release")
	require.NoError(t, w.Put(ctx, src, "a.jar"))

	require.NoError(t, w.Connect(ctx, "b2://"+testBucket+"/maven-snapshots", creds))
	src = writeLocalFile(t, "a.jar", "snapshot")
	require.NoError(t, w.Put(ctx, src, "a.jar"))

	_, err := mem.StatObject(ctx, testBucket, "maven-releases/a.jar")
	require.NoError(t, err)
	_, err = mem.StatObject(ctx, testBucket, "maven-snapshots/a.jar")
	require.NoError(t, err)
}
