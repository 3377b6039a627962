package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	lastMod     time.Time
	contentType string
}

// Memory is an in-memory ObjectStorage used by tests and dry runs. Objects
// do not survive the process.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string]map[string]memoryObject
	closed  bool

	// Clock lets tests control upload timestamps; defaults to time.Now.
	Clock func() time.Time
}

// NewMemory creates an empty in-memory store with the given buckets.
func NewMemory(buckets ...string) *Memory {
	m := &Memory{
		buckets: make(map[string]map[string]memoryObject),
		Clock:   time.Now,
	}
	for _, b := range buckets {
		m.buckets[b] = make(map[string]memoryObject)
	}
	return m
}

func (m *Memory) BucketExists(_ context.Context, bucket string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, fmt.Errorf("memory store is closed")
	}
	_, ok := m.buckets[bucket]
	return ok, nil
}

func (m *Memory) StatObject(_ context.Context, bucket, key string) (ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, err := m.lookup(bucket, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		LastModified: obj.lastMod,
		ContentType:  obj.contentType,
	}, nil
}

func (m *Memory) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, err := m.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	// Copy so later writes to the same key do not race the reader.
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) PutObject(_ context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("memory upload failed for %s: %w", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("memory upload failed for %s: size mismatch (declared %d, read %d)", key, size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return fmt.Errorf("put %s: bucket %s: %w", key, bucket, ErrObjectNotFound)
	}
	objects[key] = memoryObject{
		data:        data,
		lastMod:     m.Clock(),
		contentType: contentType,
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetModTime overrides the stored timestamp for a key; test helper.
func (m *Memory) SetModTime(bucket, key string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.buckets[bucket][key]; ok {
		obj.lastMod = t
		m.buckets[bucket][key] = obj
	}
}

func (m *Memory) lookup(bucket, key string) (memoryObject, error) {
	if m.closed {
		return memoryObject{}, fmt.Errorf("memory store is closed")
	}
	objects, ok := m.buckets[bucket]
	if !ok {
		return memoryObject{}, fmt.Errorf("bucket %s: %w", bucket, ErrObjectNotFound)
	}
	obj, ok := objects[key]
	if !ok {
		return memoryObject{}, fmt.Errorf("key %s: %w", key, ErrObjectNotFound)
	}
	return obj, nil
}

var _ ObjectStorage = (*Memory)(nil)
