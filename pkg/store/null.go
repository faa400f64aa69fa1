package store

import "context"

// NullStore never stores anything. Every read is a miss.
type NullStore struct{}

// NewNullStore returns a null store.
func NewNullStore() NullStore { return NullStore{} }

// Get always misses.
func (NullStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set does nothing.
func (NullStore) Set(ctx context.Context, key string, data []byte) error { return nil }

// Delete does nothing.
func (NullStore) Delete(ctx context.Context, key string) error { return nil }

// Close does nothing.
func (NullStore) Close() error { return nil }

var _ Store = NullStore{}
