// Package store provides durable client-local key/value storage.
//
// # Architecture
//
// The Store interface is a small key/value contract: Get, Set, Delete and
// List by prefix. Two implementations exist:
//
//   - SQLiteStore: durable storage backed by modernc.org/sqlite
//   - MockStore: in-memory storage for tests
//
// Higher layers (see internal/session) decide the key layout. The thread id
// of each agent category lives under "thread_id_<category>".
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode:
//
//	PRAGMA journal_mode=WAL;
//
// Concurrent writers from several processes follow last-write-wins; there is
// no cross-process coordination beyond SQLite's own locking.
//
// Database file locations:
//
//   - Default: ~/.local/share/querybot/querybot.db
//   - Testing: :memory: (in-memory database, single connection)
//
// # Error Handling
//
// Get and Delete return ErrNotFound when the key does not exist. All methods
// accept context.Context for cancellation support.
package store
