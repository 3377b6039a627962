// Package wagon implements a Maven repository transfer adapter backed by a
// Backblaze B2 bucket. It mirrors the five operations the Maven wagon
// contract expects of a transport: connect, disconnect, get, getIfNewer,
// put and resourceExists.
package wagon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/A-N-O-D-E-R/B2Wagon/internal/storage"
)

// Credentials is the application key pair the host's credential store hands
// over for the repository server entry.
type Credentials struct {
	KeyID          string
	ApplicationKey string
}

// DialFunc builds the storage client during Connect. Replaceable so tests
// can plug in an in-memory store.
type DialFunc func(ctx context.Context, cfg storage.B2Config) (storage.ObjectStorage, error)

// Wagon is a repository transfer adapter. It owns its storage client for the
// lifetime of a connect/disconnect session; there is no process-wide pool.
// A Wagon is safe for concurrent use, though each call is a single
// synchronous operation.
type Wagon struct {
	endpoint string
	region   string
	useSSL   bool
	dial     DialFunc
	listener TransferListener

	mu    sync.Mutex
	store storage.ObjectStorage
	loc   Location
}

type Option func(*Wagon)

// WithEndpoint sets the S3-compatible API endpoint, e.g.
// s3.us-west-004.backblazeb2.com.
func WithEndpoint(endpoint string) Option {
	return func(w *Wagon) { w.endpoint = endpoint }
}

// WithRegion sets the signing region matching the endpoint.
func WithRegion(region string) Option {
	return func(w *Wagon) { w.region = region }
}

// WithInsecure disables TLS; only useful against local S3 stand-ins.
func WithInsecure() Option {
	return func(w *Wagon) { w.useSSL = false }
}

// WithListener registers a transfer lifecycle listener.
func WithListener(listener TransferListener) Option {
	return func(w *Wagon) { w.listener = listener }
}

// WithDialer replaces the storage client factory.
func WithDialer(dial DialFunc) Option {
	return func(w *Wagon) { w.dial = dial }
}

func New(opts ...Option) *Wagon {
	w := &Wagon{
		useSSL:   true,
		listener: NopListener{},
	}
	w.dial = func(ctx context.Context, cfg storage.B2Config) (storage.ObjectStorage, error) {
		return storage.NewB2Client(cfg)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Connect parses the repository URL, validates credentials, dials the
// backend and confirms the bucket exists. Calling Connect on an already
// connected Wagon replaces the session, so the host may repoint a live
// instance at another repository.
func (w *Wagon) Connect(ctx context.Context, rawURL string, creds Credentials) error {
	loc, err := ParseLocation(rawURL)
	if err != nil {
		return err
	}

	// Credential check comes before anything touches the network.
	if creds.KeyID == "" || creds.ApplicationKey == "" {
		return &AuthError{Reason: "application key ID and application key must both be set"}
	}

	store, err := w.dial(ctx, storage.B2Config{
		Endpoint:       w.endpoint,
		KeyID:          creds.KeyID,
		ApplicationKey: creds.ApplicationKey,
		Region:         w.region,
		UseSSL:         w.useSSL,
	})
	if err != nil {
		return &ConnectionError{Bucket: loc.Bucket, Reason: "client setup failed", Err: err}
	}

	ok, err := store.BucketExists(ctx, loc.Bucket)
	if err != nil {
		_ = store.Close()
		return &ConnectionError{Bucket: loc.Bucket, Reason: "bucket lookup failed", Err: err}
	}
	if !ok {
		_ = store.Close()
		return &ConnectionError{Bucket: loc.Bucket, Reason: "bucket not found; ensure it exists and the key has access"}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.store != nil {
		_ = w.store.Close()
	}
	w.store = store
	w.loc = loc
	return nil
}

// Disconnect releases the storage client. It never fails; a close error on
// an already-dead client is not actionable for the host.
func (w *Wagon) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.store != nil {
		_ = w.store.Close()
		w.store = nil
	}
	w.loc = Location{}
}

// session returns the current store and location. The location is re-read on
// every call rather than captured per operation so a re-Connect on a live
// instance takes effect immediately.
func (w *Wagon) session() (storage.ObjectStorage, Location, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.store == nil {
		return nil, Location{}, &ConnectionError{Reason: "not connected"}
	}
	return w.store, w.loc, nil
}

// Get downloads a resource into destination. The object is staged to a
// temporary file first and moved into place atomically, falling back to a
// plain copy when rename crosses filesystems.
func (w *Wagon) Get(ctx context.Context, resourceName, destination string) error {
	store, loc, err := w.session()
	if err != nil {
		return err
	}
	key := loc.ResolveKey(resourceName)

	event := TransferEvent{Resource: resourceName, Kind: TransferDownload, LocalFile: destination}
	w.listener.TransferInitiated(event)
	w.listener.TransferStarted(event)

	reader, err := store.GetObject(ctx, loc.Bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return &NotFoundError{Resource: resourceName, Err: err}
		}
		return &TransferError{Op: "download", Resource: resourceName, Err: err}
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return &TransferError{Op: "download", Resource: resourceName, Err: err}
	}

	// Stage next to the destination so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(destination), ".b2wagon-*")
	if err != nil {
		return &TransferError{Op: "download", Resource: resourceName, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	size, err := io.Copy(tmp, reader)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &TransferError{Op: "download", Resource: resourceName, Err: err}
	}

	if err := os.Rename(tmpName, destination); err != nil {
		if err := copyFile(tmpName, destination); err != nil {
			return &TransferError{Op: "download", Resource: resourceName, Err: err}
		}
	}

	event.Size = size
	w.listener.TransferCompleted(event)
	return nil
}

// GetIfNewer downloads the resource only when the remote copy was uploaded
// after since. When the metadata lookup itself fails with a transport error
// the remote age is unknown, so the resource is fetched anyway: a spurious
// download is cheaper than resolving against a stale artifact.
func (w *Wagon) GetIfNewer(ctx context.Context, resourceName, destination string, since time.Time) (bool, error) {
	store, loc, err := w.session()
	if err != nil {
		return false, err
	}

	info, err := store.StatObject(ctx, loc.Bucket, loc.ResolveKey(resourceName))
	switch {
	case err == nil:
		if !info.LastModified.After(since) {
			return false, nil
		}
	case errors.Is(err, storage.ErrObjectNotFound):
		return false, &NotFoundError{Resource: resourceName, Err: err}
	default:
		// fall through to the fetch
	}

	if err := w.Get(ctx, resourceName, destination); err != nil {
		return false, err
	}
	return true, nil
}

// Put uploads a local file under the given resource name, with the content
// type inferred from the resource suffix.
func (w *Wagon) Put(ctx context.Context, source, resourceName string) error {
	store, loc, err := w.session()
	if err != nil {
		return err
	}
	key := loc.ResolveKey(resourceName)

	event := TransferEvent{Resource: resourceName, Kind: TransferUpload, LocalFile: source}
	w.listener.TransferInitiated(event)
	w.listener.TransferStarted(event)

	file, err := os.Open(source)
	if err != nil {
		return &TransferError{Op: "upload", Resource: resourceName, Err: err}
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return &TransferError{Op: "upload", Resource: resourceName, Err: err}
	}

	if err := store.PutObject(ctx, loc.Bucket, key, file, stat.Size(), ContentTypeFor(key)); err != nil {
		return &TransferError{Op: "upload", Resource: resourceName, Err: err}
	}

	event.Size = stat.Size()
	w.listener.TransferCompleted(event)
	return nil
}

// ResourceExists checks whether the resource is present remotely.
func (w *Wagon) ResourceExists(ctx context.Context, resourceName string) (bool, error) {
	store, loc, err := w.session()
	if err != nil {
		return false, err
	}

	_, err = store.StatObject(ctx, loc.Bucket, loc.ResolveKey(resourceName))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return false, nil
		}
		return false, &TransferError{Op: "stat", Resource: resourceName, Err: err}
	}
	return true, nil
}

// Location returns the currently connected repository location.
func (w *Wagon) Location() (Location, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loc, w.store != nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
