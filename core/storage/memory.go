package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Object is an artifact kept by MemoryStorage.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// MemoryStorage keeps artifacts in memory. Used in tests and when no bucket is configured.
type MemoryStorage struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryStorage creates an empty store. URLs are baseURL + "/" + key.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

// Put implements Storage.
func (m *MemoryStorage) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrOperationCanceled, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("storage: read body: %w", err)
	}

	m.mu.Lock()
	m.objects[key] = Object{Key: key, ContentType: contentType, Data: buf.Bytes()}
	m.mu.Unlock()

	return m.URL(key), nil
}

// URL implements Storage.
func (m *MemoryStorage) URL(key string) string {
	return m.baseURL + "/" + strings.TrimPrefix(key, "/")
}

// Get returns a stored object.
func (m *MemoryStorage) Get(key string) (Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Object{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return Object{}, fmt.Errorf("%w: %s", ErrFileNotFound, key)
	}
	return obj, nil
}

// Keys returns the keys of all stored objects.
func (m *MemoryStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
