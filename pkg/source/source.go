// Package source loads datasets from the collaborators that own them:
// JSON or YAML exports on disk, or the MongoDB collections of the
// marketing console. A [Watcher] reloads a file source when it changes.
package source

import (
	"context"

	"github.com/matzehuels/clustermap/pkg/model"
)

// Source produces a validated, prepared dataset.
type Source interface {
	Load(ctx context.Context) (*model.Dataset, error)
}
