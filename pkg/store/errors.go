package store

import "github.com/matzehuels/clustermap/pkg/errors"

// unavailable wraps a backend failure with the STORE_UNAVAILABLE code.
func unavailable(backend, op string, err error) error {
	return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "%s store: %s", backend, op)
}
