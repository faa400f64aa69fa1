// Package store persists small opaque blobs (viewport and expand state) for
// the map engine.
//
// The engine treats storage as a collaborator: a missing or unreadable blob
// means "use defaults" and a failing write is logged, never fatal. Backends:
//
//   - [FileStore]: one JSON envelope per key under a directory (CLI default)
//   - [SQLiteStore]: a single-table key/value database
//   - [RedisStore]: shared storage for the HTTP server, behind a circuit breaker
//   - [MemoryStore]: process-local, for tests and ephemeral sessions
//   - [NullStore]: never stores anything
//
// [Scoped] prefixes keys so several maps or users can share one backend.
package store

import "context"

// Well-known keys.
const (
	KeyViewport = "viewport"
	KeyExpand   = "expand"
)

// Store is a minimal key/value store.
type Store interface {
	// Get returns the value for key. A missing key is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set replaces the value for key.
	Set(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
