// Package search matches label queries against the rendered layout and
// moves the viewport to a chosen result.
//
// Only content present in the computed graph is searchable: labels of
// collapsed branches have no coordinates to teleport to.
package search

import (
	"strings"

	"github.com/matzehuels/clustermap/pkg/layout"
)

// DefaultLimit caps the number of suggestions.
const DefaultLimit = 10

// Kind names the matched element.
type Kind string

const (
	KindCluster    Kind = "Cluster"
	KindSubcluster Kind = "Subcluster"
	KindModel      Kind = "Model"
	KindFilter     Kind = "Filter"
)

// Suggestion is one match with the top-left anchor of the matched box or
// row, in canvas units. Parent is the owning subcluster of a matched row.
type Suggestion struct {
	Kind   Kind    `json:"kind"`
	Label  string  `json:"label"`
	ID     string  `json:"id"`
	Parent string  `json:"parent,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type entry struct {
	Suggestion
	folded string
}

// Index is an immutable snapshot of the searchable labels of one graph.
type Index struct {
	entries []entry
}

// NewIndex collects labels from g in kind order: clusters, subclusters,
// model rows, filter rows. Within a kind, layout order is kept.
func NewIndex(g *layout.Graph) *Index {
	ix := &Index{}
	if g == nil {
		return ix
	}
	for _, b := range g.Boxes {
		if b.Kind == layout.KindCluster {
			ix.add(KindCluster, b.Label, b.ID, "", b.X, b.Y)
		}
	}
	for _, b := range g.Boxes {
		if b.Kind == layout.KindSubcluster {
			ix.add(KindSubcluster, b.Label, b.ID, "", b.X, b.Y)
		}
	}
	for _, want := range []layout.Kind{layout.KindModels, layout.KindFilters} {
		kind := KindModel
		if want == layout.KindFilters {
			kind = KindFilter
		}
		for _, b := range g.Boxes {
			if b.Kind != want {
				continue
			}
			for _, r := range b.Rows {
				ix.add(kind, r.Label, r.RefID, b.SubclusterID, r.X, r.Y)
			}
		}
	}
	return ix
}

func (ix *Index) add(kind Kind, label, id, parent string, x, y float64) {
	ix.entries = append(ix.entries, entry{
		Suggestion: Suggestion{Kind: kind, Label: label, ID: id, Parent: parent, X: x, Y: y},
		folded:     strings.ToLower(label),
	})
}

// Len returns the number of indexed labels.
func (ix *Index) Len() int { return len(ix.entries) }

// Search returns up to DefaultLimit case-insensitive substring matches.
// The query is matched as typed, surrounding spaces included. A blank or
// whitespace-only query returns nil; a query without matches returns an
// empty, non-nil slice.
func (ix *Index) Search(query string) []Suggestion {
	return ix.SearchLimit(query, DefaultLimit)
}

// IsBlank reports whether query clears the suggestions instead of matching.
func IsBlank(query string) bool { return strings.TrimSpace(query) == "" }

// SearchLimit is Search with an explicit cap. A non-positive limit uses
// DefaultLimit.
func (ix *Index) SearchLimit(query string, limit int) []Suggestion {
	if IsBlank(query) {
		return nil
	}
	q := strings.ToLower(query)
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := make([]Suggestion, 0, min(limit, len(ix.entries)))
	for _, e := range ix.entries {
		if strings.Contains(e.folded, q) {
			out = append(out, e.Suggestion)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
