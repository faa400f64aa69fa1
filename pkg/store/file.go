package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps each key in its own JSON envelope under dir.
type FileStore struct {
	dir string
	now func() time.Time
}

// NewFileStore creates a file store, creating dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, unavailable("file", "mkdir", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

type fileEntry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Get reads key. An unreadable envelope is removed and reported as a miss.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := s.path(key)

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("file", "read", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Set writes key atomically through a temp file and rename.
func (s *FileStore) Set(ctx context.Context, key string, data []byte) error {
	raw, err := json.Marshal(fileEntry{Key: key, Data: data, UpdatedAt: s.now().UTC()})
	if err != nil {
		return err
	}

	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return unavailable("file", "mkdir", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return unavailable("file", "write", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return unavailable("file", "write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return unavailable("file", "write", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return unavailable("file", "rename", err)
	}
	return nil
}

// Delete removes key.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	return unavailable("file", "delete", err)
}

// Close does nothing.
func (s *FileStore) Close() error { return nil }

// path shards keys by the first two hex chars of their hash.
func (s *FileStore) path(key string) string {
	h := Hash([]byte(key))
	return filepath.Join(s.dir, h[:2], h[2:]+".json")
}

var _ Store = (*FileStore)(nil)
