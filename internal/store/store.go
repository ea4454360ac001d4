// ABOUTME: Store interface and record type for client-local key/value persistence
// ABOUTME: Shared by the SQLite implementation and the in-memory mock

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("not found")

// Entry is a single key/value record
type Entry struct {
	Key       string
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists string values by key
type Store interface {
	// Get returns the entry for key or ErrNotFound.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set creates or replaces the value for key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key, returning ErrNotFound if it was absent.
	Delete(ctx context.Context, key string) error

	// List returns all entries whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]*Entry, error)

	// Close releases the underlying resources.
	Close() error
}
