package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Storage persists generated artifacts such as rendered reports.
type Storage interface {
	// Put stores body under key and returns the artifact URL.
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	// URL returns the public URL of key without checking that it exists.
	URL(key string) string
}

// Domain errors shared by storage implementations.
var (
	ErrInvalidConfig      = errors.New("storage: invalid configuration")
	ErrInvalidPath        = errors.New("storage: invalid path")
	ErrFileNotFound       = errors.New("storage: file not found")
	ErrBucketNotFound     = errors.New("storage: bucket not found")
	ErrAccessDenied       = errors.New("storage: access denied")
	ErrOperationTimeout   = errors.New("storage: operation timed out")
	ErrOperationCanceled  = errors.New("storage: operation canceled")
	ErrRequestTimeout     = errors.New("storage: request timeout")
	ErrServiceUnavailable = errors.New("storage: service unavailable")
	ErrInvalidObjectState = errors.New("storage: invalid object state")
)

// CleanKey normalises an object key and rejects traversal.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
	}
	return path.Clean(key), nil
}
