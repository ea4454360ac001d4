// ABOUTME: Session store mapping agent categories to persisted thread identifiers
// ABOUTME: Wraps the key/value store and the remote conversation deletion call

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/querybot/internal/agentapi"
	"github.com/2389/querybot/internal/store"
)

// keyPrefix is shared by every thread id record.
const keyPrefix = "thread_id_"

// RemoteDeleter removes a conversation on the remote agent service.
type RemoteDeleter interface {
	DeleteConversation(ctx context.Context, threadID string) error
}

// Store persists one thread id per agent category.
type Store struct {
	kv     store.Store
	remote RemoteDeleter
	logger *slog.Logger
}

// New creates a session store. remote may be nil, in which case ClearRemote
// only clears local state.
func New(kv store.Store, remote RemoteDeleter) *Store {
	return &Store{
		kv:     kv,
		remote: remote,
		logger: slog.Default().With("component", "session"),
	}
}

// Key returns the storage key for a category.
func Key(category agentapi.Category) string {
	return keyPrefix + string(category)
}

// Load returns the stored thread id for category. Any storage failure is
// logged and reported as absent.
func (s *Store) Load(ctx context.Context, category agentapi.Category) (string, bool) {
	e, err := s.kv.Get(ctx, Key(category))
	if errors.Is(err, store.ErrNotFound) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("failed to load thread id", "category", category, "error", err)
		return "", false
	}
	if e.Value == "" {
		return "", false
	}
	return e.Value, true
}

// Save stores threadID for category.
func (s *Store) Save(ctx context.Context, category agentapi.Category, threadID string) error {
	if threadID == "" {
		return fmt.Errorf("saving thread id for %s: empty thread id", category)
	}
	if err := s.kv.Set(ctx, Key(category), threadID); err != nil {
		return fmt.Errorf("saving thread id for %s: %w", category, err)
	}
	return nil
}

// Clear removes the local record for category. A missing record is not an error.
func (s *Store) Clear(ctx context.Context, category agentapi.Category) error {
	err := s.kv.Delete(ctx, Key(category))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("clearing thread id for %s: %w", category, err)
	}
	return nil
}

// ClearRemote deletes threadID on the remote service and, once acknowledged,
// clears the local record. On failure local state is left untouched.
func (s *Store) ClearRemote(ctx context.Context, category agentapi.Category, threadID string) error {
	if s.remote != nil {
		if err := s.remote.DeleteConversation(ctx, threadID); err != nil {
			s.logger.Warn("failed to clear conversation on server",
				"category", category,
				"thread_id", threadID,
				"error", err,
			)
			return fmt.Errorf("clearing remote conversation %s: %w", threadID, err)
		}
	}
	return s.Clear(ctx, category)
}

// List returns every stored thread id keyed by category. Records for unknown
// categories are skipped.
func (s *Store) List(ctx context.Context) (map[agentapi.Category]string, error) {
	entries, err := s.kv.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing thread ids: %w", err)
	}

	out := make(map[agentapi.Category]string, len(entries))
	for _, e := range entries {
		c := agentapi.Category(strings.TrimPrefix(e.Key, keyPrefix))
		if !c.Valid() {
			continue
		}
		out[c] = e.Value
	}
	return out, nil
}
