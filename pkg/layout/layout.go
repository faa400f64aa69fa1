package layout

import (
	"fmt"
	"math"
	"strconv"

	"github.com/matzehuels/clustermap/pkg/model"
	"github.com/matzehuels/clustermap/pkg/textmetrics"
)

// ExpandView is the read side of the expand/collapse state.
type ExpandView interface {
	ClusterExpanded(id string) bool
	SubclusterExpanded(id string) bool
}

// ExpandSet is a plain-map [ExpandView]. The zero value has everything
// collapsed.
type ExpandSet struct {
	Clusters    map[string]bool
	Subclusters map[string]bool
}

// ClusterExpanded reports whether the cluster is expanded.
func (s ExpandSet) ClusterExpanded(id string) bool { return s.Clusters[id] }

// SubclusterExpanded reports whether the subcluster is expanded.
func (s ExpandSet) SubclusterExpanded(id string) bool { return s.Subclusters[id] }

// Measurer estimates rendered label widths.
type Measurer interface {
	Measure(text string, fontSize float64) float64
}

// Input is everything one layout pass reads.
type Input struct {
	Dataset  *model.Dataset
	Expanded ExpandView
	Metrics  Measurer
	Options  Options
}

// Compute lays out the visible tree. A nil dataset yields an empty canvas;
// a nil ExpandView means everything is collapsed.
func Compute(in Input) *Graph {
	e := engine{
		opts:     in.Options.WithDefaults(),
		metrics:  in.Metrics,
		expanded: in.Expanded,
		ds:       in.Dataset,
		g:        &Graph{Boxes: []Box{}, Lines: []Line{}},
	}
	if e.metrics == nil {
		e.metrics = textmetrics.Default
	}
	if e.expanded == nil {
		e.expanded = ExpandSet{}
	}
	if e.ds == nil {
		e.ds = &model.Dataset{}
	}
	e.run()
	return e.g
}

type engine struct {
	opts     Options
	metrics  Measurer
	expanded ExpandView
	ds       *model.Dataset
	g        *Graph
	bottom   float64
}

func (e *engine) run() {
	o := e.opts
	x := o.Margin
	right := o.Margin
	e.bottom = o.Margin

	for ci, c := range e.ds.Clusters {
		n := max(1, len(c.Types))
		colW := float64(n) * o.MinSubColumnWidth
		color := o.Palette[ci%len(o.Palette)]

		e.cluster(c, x, colW, color)

		right = x + colW
		x = right + o.ClusterGap
	}

	e.g.Width = right + o.Margin
	e.g.Height = math.Max(o.MinCanvasHeight, e.bottom+o.Margin)
}

func (e *engine) cluster(c model.Cluster, x, colW float64, color string) {
	o := e.opts
	expanded := e.expanded.ClusterExpanded(c.ID)

	badge := plural(len(c.Types), "subcluster")
	w := math.Min(e.measure(c.Name, o.ClusterFontSize)+e.measure(badge, o.BadgeFontSize), colW)
	parent := Box{
		Kind:      KindCluster,
		ID:        c.ID,
		ClusterID: c.ID,
		Label:     c.Name,
		Badges:    []string{badge},
		Expanded:  expanded,
		Color:     color,
		X:         x + (colW-w)/2,
		Y:         o.Margin,
		W:         w,
		H:         o.ClusterHeight,
	}
	e.add(parent)

	if !expanded || len(c.Types) == 0 {
		return
	}

	subW := colW / float64(len(c.Types))
	y := parent.Bottom() + o.LevelGap
	for si, t := range c.Types {
		sx := x + float64(si)*subW
		cfg := e.ds.ConfigFor(t.ID)
		models, filters := e.resolve(cfg)

		badges := []string{plural(len(models), "model"), plural(len(filters), "filter")}
		lw := e.measure(t.Name, o.SubclusterFontSize)
		for _, b := range badges {
			lw += e.measure(b, o.BadgeFontSize)
		}
		sw := math.Min(lw, subW-o.SubColumnMargin)

		subExpanded := e.expanded.SubclusterExpanded(t.ID)
		sub := Box{
			Kind:         KindSubcluster,
			ID:           t.ID,
			ClusterID:    c.ID,
			SubclusterID: t.ID,
			Label:        t.Name,
			Badges:       badges,
			Expanded:     subExpanded,
			Color:        color,
			X:            sx + (subW-sw)/2,
			Y:            y,
			W:            sw,
			H:            o.SubclusterHeight,
		}
		e.add(sub)
		e.line(LineTree, parent, sub, color)

		if subExpanded && cfg.HasReferences() {
			e.stack(c.ID, sub, sx, subW, models, filters, color)
		}
	}
}

// resolve maps config ids to catalogue entries, skipping dangling ids.
func (e *engine) resolve(cfg model.Config) ([]model.SearchModel, []model.Filter) {
	models := make([]model.SearchModel, 0, len(cfg.Models))
	for _, id := range cfg.Models {
		if m, ok := e.ds.Model(id); ok {
			models = append(models, m)
		}
	}
	filters := make([]model.Filter, 0, len(cfg.Filters))
	for _, id := range cfg.Filters {
		if f, ok := e.ds.Filter(id); ok {
			filters = append(filters, f)
		}
	}
	return models, filters
}

func (e *engine) diagnose(subID string, cfg model.Config) {
	d := &e.g.Diagnostics
	for _, id := range cfg.Models {
		if _, ok := e.ds.Model(id); !ok {
			d.DroppedModels++
			d.Dangling = append(d.Dangling, DanglingRef{SubclusterID: subID, Kind: RowModel, RefID: id})
		}
	}
	for _, id := range cfg.Filters {
		if _, ok := e.ds.Filter(id); !ok {
			d.DroppedFilters++
			d.Dangling = append(d.Dangling, DanglingRef{SubclusterID: subID, Kind: RowFilter, RefID: id})
		}
	}
}

func (e *engine) stack(clusterID string, sub Box, sx, subW float64, models []model.SearchModel, filters []model.Filter, color string) {
	o := e.opts
	e.diagnose(sub.ID, e.ds.ConfigFor(sub.ID))

	w := math.Min(o.MaxBoxWidth, subW-o.SubColumnMargin)
	bx := sx + (subW-w)/2
	y := sub.Bottom() + o.StackGap
	prev := sub

	push := func(b Box) {
		b.ClusterID = clusterID
		b.SubclusterID = sub.ID
		b.ID = sub.ID
		b.Color = color
		b.Y = y
		e.add(b)
		e.line(LineStack, prev, b, color)
		prev = b
		y = b.Bottom() + o.StackGap
	}

	mb := Box{Kind: KindModels, Label: "Models", X: bx, W: w}
	mb.Y = y
	for i, m := range models {
		mb.Rows = append(mb.Rows, e.row(mb, i, 0, RowModel, m.ID, m.Name, ""))
	}
	mb.H = e.boxHeight(len(models), 0)
	push(mb)

	fb := Box{Kind: KindFilters, Label: "Filters", X: bx, W: w}
	fb.Y = y
	for i, f := range filters {
		fb.Rows = append(fb.Rows, e.row(fb, i, 0, RowFilter, f.ID, f.Name, strconv.Itoa(len(f.Items))))
	}
	fb.H = e.boxHeight(len(filters), 0)
	push(fb)

	if stats, ok := e.ds.StatsFor(sub.ID); ok && stats.FilteredCount > 0 {
		rb := Box{
			Kind:    KindResults,
			Label:   "Results",
			X:       bx,
			W:       w,
			Summary: &Summary{Phrases: stats.FilteredCount, Impressions: stats.TotalImpressions},
		}
		rb.Y = y
		sample, _ := e.ds.ResultsFor(sub.ID)
		queries := sample.Queries
		if len(queries) > o.ResultRowCap {
			e.g.Diagnostics.TruncatedResults += len(queries) - o.ResultRowCap
			queries = queries[:o.ResultRowCap]
		}
		for i, q := range queries {
			rb.Rows = append(rb.Rows, e.row(rb, i, o.SummaryHeight, RowQuery, "", q.Query, strconv.FormatInt(q.Count, 10)))
		}
		rb.H = e.boxHeight(len(queries), o.SummaryHeight)
		push(rb)
	}

	push(Box{
		Kind:  KindViewButton,
		Label: "View",
		X:     sx + (subW-o.ButtonWidth)/2,
		W:     o.ButtonWidth,
		H:     o.ButtonHeight,
	})
}

func (e *engine) boxHeight(rows int, extra float64) float64 {
	o := e.opts
	return o.HeaderHeight + extra + float64(rows)*o.RowHeight + o.BoxPadding
}

func (e *engine) row(box Box, i int, offset float64, kind RowKind, ref, label, badge string) Row {
	o := e.opts
	inset := o.BoxPadding / 2
	return Row{
		Kind:  kind,
		RefID: ref,
		Label: label,
		Badge: badge,
		X:     box.X + inset,
		Y:     box.Y + o.HeaderHeight + offset + float64(i)*o.RowHeight,
		W:     box.W - 2*inset,
		H:     o.RowHeight,
	}
}

func (e *engine) add(b Box) {
	e.g.Boxes = append(e.g.Boxes, b)
	e.bottom = math.Max(e.bottom, b.Bottom())
}

func (e *engine) line(kind LineKind, from, to Box, color string) {
	e.g.Lines = append(e.g.Lines, Line{
		Kind:  kind,
		From:  Point{X: from.CenterX(), Y: from.Bottom()},
		To:    Point{X: to.CenterX(), Y: to.Y},
		Color: color,
	})
}

func (e *engine) measure(text string, size float64) float64 {
	return e.metrics.Measure(text, size)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
