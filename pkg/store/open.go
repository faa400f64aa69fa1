package store

import (
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/clustermap/pkg/errors"
)

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	Dir        string
	SQLitePath string
	RedisAddr  string
	RedisDB    int
	Prefix     string
	Logger     *log.Logger
}

// Open builds the configured backend, instrumented and wrapped with the key
// prefix.
func Open(opts Options) (Store, error) {
	if err := errors.ValidateKeyPrefix(opts.Prefix); err != nil {
		return nil, err
	}

	var (
		s   Store
		err error
	)
	switch opts.Backend {
	case "", BackendFile:
		if opts.Dir == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "file store needs a directory")
		}
		s, err = NewFileStore(opts.Dir)
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			if opts.Dir == "" {
				return nil, errors.New(errors.ErrCodeInvalidConfig, "sqlite store needs a path")
			}
			path = filepath.Join(opts.Dir, "state.db")
		}
		s, err = NewSQLiteStore(path)
	case BackendRedis:
		if opts.RedisAddr == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "redis store needs an address")
		}
		s = NewRedisStore(RedisOptions{Addr: opts.RedisAddr, DB: opts.RedisDB, Logger: opts.Logger})
	case BackendMemory:
		s = NewMemoryStore()
	case BackendNone:
		s = NewNullStore()
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown store backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	backend := opts.Backend
	if backend == "" {
		backend = BackendFile
	}
	s = Instrument(s, backend)
	if opts.Prefix == "" {
		return s, nil
	}
	return &closingScope{ScopedStore: ScopedStore{inner: s, prefix: opts.Prefix}}, nil
}

// closingScope is a ScopedStore that owns its backend.
type closingScope struct {
	ScopedStore
}

func (c *closingScope) Close() error { return c.inner.Close() }
