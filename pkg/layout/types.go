package layout

import (
	"fmt"
	"strings"
)

// Kind tags the variant of a [Box].
type Kind int

const (
	KindCluster Kind = iota
	KindSubcluster
	KindModels
	KindFilters
	KindResults
	KindViewButton
)

var kindNames = [...]string{"Cluster", "Subcluster", "Models", "Filters", "Results", "ViewButton"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name, case-insensitively.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if strings.EqualFold(name, string(b)) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown box kind %q", b)
}

// RowKind tags the variant of a [Row].
type RowKind int

const (
	RowModel RowKind = iota
	RowFilter
	RowQuery
)

var rowKindNames = [...]string{"Model", "Filter", "Query"}

func (k RowKind) String() string {
	if k < 0 || int(k) >= len(rowKindNames) {
		return fmt.Sprintf("RowKind(%d)", int(k))
	}
	return rowKindNames[k]
}

// MarshalText encodes the row kind by name.
func (k RowKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a row kind name, case-insensitively.
func (k *RowKind) UnmarshalText(b []byte) error {
	for i, name := range rowKindNames {
		if strings.EqualFold(name, string(b)) {
			*k = RowKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown row kind %q", b)
}

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is one positioned rectangle. X and Y are the top-left corner in canvas
// units; Y grows downward.
//
// ID is the cluster id for cluster boxes and the subcluster id for every
// other kind, so (Kind, ID) is unique within a graph.
type Box struct {
	Kind         Kind     `json:"kind"`
	ID           string   `json:"id"`
	ClusterID    string   `json:"clusterId"`
	SubclusterID string   `json:"subclusterId,omitempty"`
	Label        string   `json:"label"`
	Badges       []string `json:"badges,omitempty"`
	Expanded     bool     `json:"expanded,omitempty"`
	Color        string   `json:"color"`
	X            float64  `json:"x"`
	Y            float64  `json:"y"`
	W            float64  `json:"w"`
	H            float64  `json:"h"`
	Rows         []Row    `json:"rows,omitempty"`
	Summary      *Summary `json:"summary,omitempty"`
}

// Right returns the x coordinate of the right edge.
func (b Box) Right() float64 { return b.X + b.W }

// Bottom returns the y coordinate of the bottom edge.
func (b Box) Bottom() float64 { return b.Y + b.H }

// CenterX returns the horizontal center.
func (b Box) CenterX() float64 { return b.X + b.W/2 }

// CenterY returns the vertical center.
func (b Box) CenterY() float64 { return b.Y + b.H/2 }

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.Right() && p.Y >= b.Y && p.Y <= b.Bottom()
}

// Row is one item line inside a Models, Filters or Results box.
type Row struct {
	Kind  RowKind `json:"kind"`
	RefID string  `json:"refId,omitempty"`
	Label string  `json:"label"`
	Badge string  `json:"badge,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

// Summary holds the three numbers shown at the top of a Results box.
// MinFrequency is a placeholder and always zero.
type Summary struct {
	Phrases      int64 `json:"phrases"`
	Impressions  int64 `json:"impressions"`
	MinFrequency int64 `json:"minFrequency"`
}

// LineKind distinguishes tree edges from stack connectors.
type LineKind int

const (
	// LineTree connects a cluster to one of its subclusters.
	LineTree LineKind = iota
	// LineStack connects consecutive boxes of a subcluster stack.
	LineStack
)

func (k LineKind) String() string {
	if k == LineStack {
		return "stack"
	}
	return "tree"
}

// MarshalText encodes the line kind by name.
func (k LineKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a line kind name.
func (k *LineKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "tree":
		*k = LineTree
	case "stack":
		*k = LineStack
	default:
		return fmt.Errorf("unknown line kind %q", b)
	}
	return nil
}

// Line is a straight connector between two boxes.
type Line struct {
	Kind  LineKind `json:"kind"`
	From  Point    `json:"from"`
	To    Point    `json:"to"`
	Color string   `json:"color"`
}

// DanglingRef is a config reference that did not resolve.
type DanglingRef struct {
	SubclusterID string  `json:"subclusterId"`
	Kind         RowKind `json:"kind"`
	RefID        string  `json:"refId"`
}

// Diagnostics reports what the layout tolerated. Nothing here changes
// geometry.
type Diagnostics struct {
	DroppedModels    int           `json:"droppedModels"`
	DroppedFilters   int           `json:"droppedFilters"`
	TruncatedResults int           `json:"truncatedResults"`
	Dangling         []DanglingRef `json:"dangling,omitempty"`
}

// Dropped returns the total number of dropped references.
func (d Diagnostics) Dropped() int { return d.DroppedModels + d.DroppedFilters }

// Graph is the complete output of one layout pass.
type Graph struct {
	Boxes       []Box       `json:"boxes"`
	Lines       []Line      `json:"lines"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// ByKind returns the boxes of one kind in layout order.
func (g *Graph) ByKind(k Kind) []Box {
	var out []Box
	for _, b := range g.Boxes {
		if b.Kind == k {
			out = append(out, b)
		}
	}
	return out
}

// Clusters returns the cluster boxes.
func (g *Graph) Clusters() []Box { return g.ByKind(KindCluster) }

// Subclusters returns the subcluster boxes.
func (g *Graph) Subclusters() []Box { return g.ByKind(KindSubcluster) }

// Children returns the stack boxes beneath a subcluster, top to bottom.
func (g *Graph) Children(subclusterID string) []Box {
	var out []Box
	for _, b := range g.Boxes {
		if b.Kind > KindSubcluster && b.SubclusterID == subclusterID {
			out = append(out, b)
		}
	}
	return out
}

// Find returns the box with the given kind and id.
func (g *Graph) Find(k Kind, id string) (Box, bool) {
	for _, b := range g.Boxes {
		if b.Kind == k && b.ID == id {
			return b, true
		}
	}
	return Box{}, false
}

// Hit returns the topmost box containing p. Stack boxes are checked before
// their parents since they are drawn later.
func (g *Graph) Hit(p Point) (Box, bool) {
	for i := len(g.Boxes) - 1; i >= 0; i-- {
		if g.Boxes[i].Contains(p) {
			return g.Boxes[i], true
		}
	}
	return Box{}, false
}

// RowCount returns the total number of rows across all boxes.
func (g *Graph) RowCount() int {
	n := 0
	for _, b := range g.Boxes {
		n += len(b.Rows)
	}
	return n
}
