// Package records is the persistence boundary used by job processors. Records
// are opaque JSON documents grouped in collections and addressed by a numeric ID.
package records

import (
	"context"
	"errors"
)

// Collections used by the processors.
const (
	Users         = "users"
	Deals         = "deals"
	Funds         = "funds"
	Documents     = "documents"
	Notifications = "notifications"
	Timeline      = "timeline"
	Reports       = "reports"
)

var (
	ErrNotFound          = errors.New("records: not found")
	ErrInvalidCollection = errors.New("records: invalid collection")
)

// Store reads and creates records.
type Store interface {
	// Get decodes the record into dst or returns ErrNotFound.
	Get(ctx context.Context, collection string, id int64, dst any) error
	// Create stores v and returns the assigned ID.
	Create(ctx context.Context, collection string, v any) (int64, error)
}
