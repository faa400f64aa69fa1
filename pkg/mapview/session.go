// Package mapview ties the map engine together: one Session owns a dataset,
// its expand state, the viewport controller, the computed layout and the
// search index built from it.
//
// A Session serializes every mutation behind a single lock, standing in
// for a UI thread. Any change to the dataset or the expand state recomputes
// the layout and the index synchronously before the mutation returns, so
// readers never observe geometry from a previous state.
package mapview

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/clustermap/pkg/expand"
	"github.com/matzehuels/clustermap/pkg/layout"
	"github.com/matzehuels/clustermap/pkg/model"
	"github.com/matzehuels/clustermap/pkg/observability"
	"github.com/matzehuels/clustermap/pkg/schedule"
	"github.com/matzehuels/clustermap/pkg/search"
	"github.com/matzehuels/clustermap/pkg/store"
	"github.com/matzehuels/clustermap/pkg/viewport"
)

// Options configures a Session. Zero values take package defaults.
type Options struct {
	// Store persists viewport and expand state. Nil disables persistence.
	Store store.Store
	Clock schedule.Clock

	Layout  layout.Options
	Metrics layout.Measurer

	PersistDelay      time.Duration
	SearchDelay       time.Duration
	SearchLimit       int
	HighlightDuration time.Duration

	// OnSuggestions receives debounced results of Type.
	OnSuggestions func(query string, results []search.Suggestion)
	// OnHighlight receives each teleport highlight and nil when it clears.
	OnHighlight func(*search.Highlight)

	Logger *log.Logger
}

// Session is one open map.
type Session struct {
	mu      sync.Mutex
	ds      *model.Dataset
	graph   *layout.Graph
	index   *search.Index
	fitNext bool

	opts       Options
	expand     *expand.Store
	vp         *viewport.Controller
	searcher   *search.Searcher
	teleporter *search.Teleporter
	logger     *log.Logger

	listeners []func(*layout.Graph)
}

// New creates a session over ds with everything collapsed. Call Open to
// restore persisted state.
func New(ds *model.Dataset, opts Options) (*Session, error) {
	if ds == nil {
		ds = &model.Dataset{}
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	ds.Prepare()

	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Store == nil {
		opts.Store = store.NewNullStore()
	}

	s := &Session{
		ds:     ds,
		opts:   opts,
		logger: opts.Logger,
	}
	s.expand = expand.New(opts.Store, expand.WithLogger(opts.Logger))
	s.vp = viewport.NewController(opts.Store, viewport.Options{
		Clock:        opts.Clock,
		PersistDelay: opts.PersistDelay,
		Logger:       opts.Logger,
	})
	s.searcher = search.NewSearcher(s.currentIndex, s.deliver, search.SearcherOptions{
		Clock: opts.Clock,
		Delay: opts.SearchDelay,
		Limit: opts.SearchLimit,
	})
	s.teleporter = search.NewTeleporter(s.vp, search.TeleporterOptions{
		Clock:    opts.Clock,
		Duration: opts.HighlightDuration,
		OnChange: opts.OnHighlight,
	})

	s.mu.Lock()
	s.recomputeLocked(context.Background())
	s.mu.Unlock()
	return s, nil
}

// Open restores the persisted expand state and viewport. When no viewport
// was stored, the first measured container fits the whole canvas. It
// reports whether a viewport was restored.
func (s *Session) Open(ctx context.Context) bool {
	s.expand.Load(ctx)
	pruned := s.expand.Prune(s.Dataset())
	restored := s.vp.Restore(ctx)

	s.mu.Lock()
	s.fitNext = !restored
	s.recomputeLocked(ctx)
	g := s.graph
	s.mu.Unlock()

	s.logger.Debug("map opened", "restored_viewport", restored, "pruned", pruned, "boxes", len(g.Boxes))
	s.notify(g)
	return restored
}

// Graph returns the current layout. The graph is never mutated after it is
// published; treat it as read-only.
func (s *Session) Graph() *layout.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// Dataset returns the current dataset.
func (s *Session) Dataset() *model.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds
}

// Index returns the search index of the current layout.
func (s *Session) Index() *search.Index { return s.currentIndex() }

// Diagnostics returns what the current layout tolerated.
func (s *Session) Diagnostics() layout.Diagnostics {
	return s.Graph().Diagnostics
}

// OnGraph registers fn to receive every recomputed layout.
func (s *Session) OnGraph(fn func(*layout.Graph)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// SetDataset replaces the input data, drops expand flags for ids that no
// longer exist and recomputes.
func (s *Session) SetDataset(ctx context.Context, ds *model.Dataset) error {
	if ds == nil {
		ds = &model.Dataset{}
	}
	if err := ds.Validate(); err != nil {
		return err
	}
	ds.Prepare()
	s.expand.Prune(ds)

	g := s.mutate(ctx, func() { s.ds = ds })
	s.searcher.Refresh()
	s.logger.Info("dataset replaced", "clusters", len(ds.Clusters), "subclusters", ds.SubclusterCount(), "boxes", len(g.Boxes))
	return nil
}

// ToggleCluster flips a cluster and returns its new state.
func (s *Session) ToggleCluster(ctx context.Context, id string) bool {
	var v bool
	s.mutate(ctx, func() { v = s.expand.ToggleCluster(id) })
	s.searcher.Refresh()
	return v
}

// ToggleSubcluster flips a subcluster and returns its new state.
func (s *Session) ToggleSubcluster(ctx context.Context, id string) bool {
	var v bool
	s.mutate(ctx, func() { v = s.expand.ToggleSubcluster(id) })
	s.searcher.Refresh()
	return v
}

// SetCluster sets a cluster's expand flag.
func (s *Session) SetCluster(ctx context.Context, id string, expanded bool) {
	s.mutate(ctx, func() { s.expand.SetCluster(id, expanded) })
	s.searcher.Refresh()
}

// SetSubcluster sets a subcluster's expand flag.
func (s *Session) SetSubcluster(ctx context.Context, id string, expanded bool) {
	s.mutate(ctx, func() { s.expand.SetSubcluster(id, expanded) })
	s.searcher.Refresh()
}

// ExpandAll expands the whole tree.
func (s *Session) ExpandAll(ctx context.Context) {
	s.mutate(ctx, func() { s.expand.ExpandAll(s.ds) })
	s.searcher.Refresh()
}

// CollapseAll collapses the whole tree.
func (s *Session) CollapseAll(ctx context.Context) {
	s.mutate(ctx, func() { s.expand.CollapseAll() })
	s.searcher.Refresh()
}

// ExpandState returns a copy of the expand flags.
func (s *Session) ExpandState() expand.State { return s.expand.Snapshot() }

// Search matches query against the current layout without debouncing.
func (s *Session) Search(ctx context.Context, query string) []search.Suggestion {
	start := time.Now()
	res := s.currentIndex().SearchLimit(query, s.opts.SearchLimit)
	if res != nil {
		observability.Map().OnSearch(ctx, len(res), time.Since(start))
	}
	return res
}

// Type feeds the debounced searcher; results reach Options.OnSuggestions.
func (s *Session) Type(query string) { s.searcher.Type(query) }

// FlushSearch runs a pending debounced query now.
func (s *Session) FlushSearch() bool { return s.searcher.Flush() }

// Suggestions returns the last debounced results.
func (s *Session) Suggestions() []search.Suggestion { return s.searcher.Results() }

// Teleport centers the viewport on a suggestion.
func (s *Session) Teleport(ctx context.Context, sg search.Suggestion) (search.Highlight, bool) {
	return s.TeleportTo(ctx, sg.X, sg.Y)
}

// TeleportTo centers the viewport on canvas point (x, y).
func (s *Session) TeleportTo(ctx context.Context, x, y float64) (search.Highlight, bool) {
	h, ok := s.teleporter.TeleportTo(x, y)
	observability.Map().OnTeleport(ctx, ok)
	if !ok {
		s.logger.Debug("teleport skipped, container not measured", "x", x, "y", y)
	}
	return h, ok
}

// Highlight returns the live teleport highlight, if any.
func (s *Session) Highlight() (search.Highlight, bool) { return s.teleporter.Current() }

// Controller exposes the viewport controller for renderers.
func (s *Session) Controller() *viewport.Controller { return s.vp }

// NewPointer returns pointer input coalesced on frames.
func (s *Session) NewPointer(frames schedule.FrameScheduler) *viewport.Pointer {
	return viewport.NewPointer(s.vp, frames)
}

// Viewport returns the current camera.
func (s *Session) Viewport() viewport.Viewport { return s.vp.Viewport() }

// ZoomAt zooms anchored at a container point.
func (s *Session) ZoomAt(cursor viewport.Point, factor float64) { s.vp.ZoomAt(cursor, factor) }

// PanBy moves the canvas.
func (s *Session) PanBy(dx, dy float64) { s.vp.PanBy(dx, dy) }

// ZoomButton zooms anchored at the container center.
func (s *Session) ZoomButton(factor float64) { s.vp.ZoomButton(factor) }

// ResetViewport returns to zoom 1 at the origin.
func (s *Session) ResetViewport() { s.vp.Reset() }

// Fit fits the whole canvas into the container.
func (s *Session) Fit() bool {
	g := s.Graph()
	return s.vp.Fit(g.Width, g.Height)
}

// SetContainer records the container size. The first measurement after an
// Open without a persisted viewport fits the canvas.
func (s *Session) SetContainer(w, h float64) {
	s.vp.SetContainer(w, h)

	s.mu.Lock()
	fit := s.fitNext && s.vp.Measured()
	if fit {
		s.fitNext = false
	}
	g := s.graph
	s.mu.Unlock()

	if fit {
		s.vp.Fit(g.Width, g.Height)
	}
}

// Close flushes the pending viewport write and stops timers.
func (s *Session) Close() error {
	s.searcher.Cancel()
	s.teleporter.Close()
	return s.vp.Close()
}

// mutate applies fn and recomputes under the session lock, then notifies
// listeners outside it.
func (s *Session) mutate(ctx context.Context, fn func()) *layout.Graph {
	s.mu.Lock()
	fn()
	s.recomputeLocked(ctx)
	g := s.graph
	s.mu.Unlock()

	s.notify(g)
	return g
}

func (s *Session) recomputeLocked(ctx context.Context) {
	start := time.Now()
	g := layout.Compute(layout.Input{
		Dataset:  s.ds,
		Expanded: s.expand,
		Metrics:  s.opts.Metrics,
		Options:  s.opts.Layout,
	})
	elapsed := time.Since(start)

	s.graph = g
	s.index = search.NewIndex(g)

	d := g.Diagnostics
	observability.Map().OnLayout(ctx, len(g.Boxes), g.RowCount(), d.Dropped(), elapsed)
	if d.Dropped() > 0 {
		s.logger.Warn("dropped dangling references",
			"models", d.DroppedModels, "filters", d.DroppedFilters)
	}
	s.logger.Debug("layout computed",
		"boxes", len(g.Boxes), "lines", len(g.Lines),
		"width", g.Width, "height", g.Height, "duration", elapsed)
}

func (s *Session) notify(g *layout.Graph) {
	s.mu.Lock()
	listeners := append([]func(*layout.Graph){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(g)
	}
}

func (s *Session) currentIndex() *search.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Session) deliver(query string, results []search.Suggestion) {
	if fn := s.opts.OnSuggestions; fn != nil {
		fn(query, results)
	}
}
