package store

import "context"

// ScopedStore prefixes every key, so several maps or users can share one
// backend without colliding.
//
//	s := store.Scoped(redisStore, "map:campaigns:")
//	s.Set(ctx, store.KeyViewport, blob) // writes "map:campaigns:viewport"
type ScopedStore struct {
	inner  Store
	prefix string
}

// Scoped wraps inner with prefix. An empty prefix returns inner unchanged.
func Scoped(inner Store, prefix string) Store {
	if prefix == "" {
		return inner
	}
	return &ScopedStore{inner: inner, prefix: prefix}
}

// Prefix returns the key prefix.
func (s *ScopedStore) Prefix() string { return s.prefix }

// Get reads the prefixed key.
func (s *ScopedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

// Set writes the prefixed key.
func (s *ScopedStore) Set(ctx context.Context, key string, data []byte) error {
	return s.inner.Set(ctx, s.prefix+key, data)
}

// Delete removes the prefixed key.
func (s *ScopedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close is a no-op; the owner of the inner store closes it.
func (s *ScopedStore) Close() error { return nil }
