package store

import (
	"context"

	"github.com/matzehuels/clustermap/pkg/observability"
)

// instrumented reports every read and write to the registered store hooks.
type instrumented struct {
	Store
	backend string
}

// Instrument wraps s so its reads and writes reach observability.Store().
func Instrument(s Store, backend string) Store {
	return &instrumented{Store: s, backend: backend}
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := i.Store.Get(ctx, key)
	observability.Store().OnStoreRead(ctx, i.backend, ok, err)
	return data, ok, err
}

func (i *instrumented) Set(ctx context.Context, key string, data []byte) error {
	err := i.Store.Set(ctx, key, data)
	observability.Store().OnStoreWrite(ctx, i.backend, len(data), err)
	return err
}
