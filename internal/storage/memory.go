package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	pkgerrors "shomokh-report-engine/pkg/errors"
)

// MemoryStorage keeps objects in process memory. It backs local runs
// without an object store and the worker and API tests.
type MemoryStorage struct {
	mu           sync.RWMutex
	objects      map[string][]byte
	contentTypes map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (m *MemoryStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, pkgerrors.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStorage) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf
	m.contentTypes[key] = contentType
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.contentTypes, key)
	return nil
}

func (m *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryStorage) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ok, _ := m.Exists(ctx, key); !ok {
		return "", fmt.Errorf("object %s: %w", key, pkgerrors.ErrNotFound)
	}
	return "memory://" + key, nil
}

// ContentType returns the content type recorded for key.
func (m *MemoryStorage) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contentTypes[key]
}
