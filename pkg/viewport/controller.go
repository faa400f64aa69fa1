package viewport

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/clustermap/pkg/schedule"
	"github.com/matzehuels/clustermap/pkg/store"
)

const writeTimeout = 2 * time.Second

// Options configures a Controller.
type Options struct {
	// Clock drives the persist debounce. Nil uses the real clock.
	Clock schedule.Clock
	// PersistDelay is the debounce window. Zero uses DefaultPersistDelay.
	PersistDelay time.Duration
	// Key overrides the storage key.
	Key    string
	Logger *log.Logger
}

// Controller owns one viewport and its container size. All methods are
// safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	vp     Viewport
	width  float64
	height float64

	listeners []func(Viewport)

	backend store.Store
	key     string
	persist *schedule.Debouncer
	logger  *log.Logger
	closed  bool
}

// NewController creates a controller at the default viewport. A nil
// backend disables persistence.
func NewController(backend store.Store, opts Options) *Controller {
	if backend == nil {
		backend = store.NewNullStore()
	}
	if opts.PersistDelay <= 0 {
		opts.PersistDelay = DefaultPersistDelay
	}
	if opts.Key == "" {
		opts.Key = store.KeyViewport
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Controller{
		vp:      Default(),
		backend: backend,
		key:     opts.Key,
		persist: schedule.NewDebouncer(opts.Clock, opts.PersistDelay),
		logger:  opts.Logger,
	}
}

// Viewport returns the current state.
func (c *Controller) Viewport() Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vp
}

// OnChange registers fn to receive every new viewport. fn runs after the
// controller lock is released.
func (c *Controller) OnChange(fn func(Viewport)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// ZoomAt zooms by factor keeping the canvas point under cursor fixed.
// Non-positive or non-finite factors are ignored.
func (c *Controller) ZoomAt(cursor Point, factor float64) {
	if !validFactor(factor) || !cursor.finite() {
		return
	}
	c.update(func(v Viewport) Viewport { return v.ZoomAt(cursor, factor) })
}

// PanBy moves the canvas by (dx, dy) screen units.
func (c *Controller) PanBy(dx, dy float64) {
	if !finite(dx) || !finite(dy) {
		return
	}
	c.update(func(v Viewport) Viewport {
		v.Pan = v.Pan.Add(Point{dx, dy})
		return v
	})
}

// ZoomButton zooms by factor anchored at the container center.
func (c *Controller) ZoomButton(factor float64) {
	if !validFactor(factor) {
		return
	}
	c.update(func(v Viewport) Viewport {
		return v.ZoomAt(Point{c.width / 2, c.height / 2}, factor)
	})
}

// ZoomIn applies one ButtonFactor step.
func (c *Controller) ZoomIn() { c.ZoomButton(ButtonFactor) }

// ZoomOut reverses one ButtonFactor step.
func (c *Controller) ZoomOut() { c.ZoomButton(1 / ButtonFactor) }

// SetContainer records the visible container size.
func (c *Controller) SetContainer(w, h float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = math.Max(0, w), math.Max(0, h)
}

// Container returns the visible container size.
func (c *Controller) Container() (w, h float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// Measured reports whether the container has a non-zero size.
func (c *Controller) Measured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.measuredLocked()
}

func (c *Controller) measuredLocked() bool { return c.width > 0 && c.height > 0 }

// CenterOn pans so canvas point (x, y) sits at the container center. It
// is a no-op returning false while the container is unmeasured.
func (c *Controller) CenterOn(x, y float64) bool {
	p := Point{x, y}
	if !p.finite() {
		return false
	}
	ok := false
	c.update(func(v Viewport) Viewport {
		if !c.measuredLocked() {
			return v
		}
		ok = true
		return v.CenterOn(p, c.width, c.height)
	})
	return ok
}

// Fit zooms and pans so a w×h canvas fills the container. It returns false
// while the container is unmeasured or the canvas is empty.
func (c *Controller) Fit(w, h float64) bool {
	if !(w > 0 && h > 0) {
		return false
	}
	ok := false
	c.update(func(v Viewport) Viewport {
		if !c.measuredLocked() {
			return v
		}
		ok = true
		z := Clamp(math.Min(c.width/w, c.height/h))
		return Viewport{Zoom: z}.CenterOn(Point{w / 2, h / 2}, c.width, c.height)
	})
	return ok
}

// Set replaces the viewport. Zoom is clamped; invalid values are ignored.
func (c *Controller) Set(v Viewport) {
	if !validFactor(v.Zoom) || !v.Pan.finite() {
		return
	}
	v.Zoom = Clamp(v.Zoom)
	c.update(func(Viewport) Viewport { return v })
}

// Reset returns to zoom 1 at the origin.
func (c *Controller) Reset() {
	c.update(func(Viewport) Viewport { return Default() })
}

// ScreenToCanvas maps a container point through the current viewport.
func (c *Controller) ScreenToCanvas(p Point) Point { return c.Viewport().ScreenToCanvas(p) }

// CanvasToScreen maps a canvas point through the current viewport.
func (c *Controller) CanvasToScreen(p Point) Point { return c.Viewport().CanvasToScreen(p) }

// Restore loads the persisted viewport. Missing, corrupt or invalid blobs
// restore the default; an out-of-range zoom is clamped. It reports whether
// a usable blob was found. Restore does not schedule a write.
func (c *Controller) Restore(ctx context.Context) bool {
	v, ok := c.load(ctx)
	c.mu.Lock()
	c.vp = v
	listeners := append([]func(Viewport){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(v)
	}
	return ok
}

func (c *Controller) load(ctx context.Context) (Viewport, bool) {
	data, found, err := c.backend.Get(ctx, c.key)
	if err != nil {
		c.logger.Warn("viewport unavailable, using default", "err", err)
		return Default(), false
	}
	if !found {
		return Default(), false
	}
	var v Viewport
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn("viewport corrupt, using default", "err", err)
		return Default(), false
	}
	if !validFactor(v.Zoom) || !v.Pan.finite() {
		c.logger.Warn("viewport invalid, using default", "zoom", v.Zoom)
		return Default(), false
	}
	v.Zoom = Clamp(v.Zoom)
	return v, true
}

// Flush writes a pending viewport now.
func (c *Controller) Flush() bool { return c.persist.Flush() }

// PersistPending reports whether a write is waiting for its debounce window.
func (c *Controller) PersistPending() bool { return c.persist.Pending() }

// Close flushes any pending write. Later changes still apply in memory but
// are no longer persisted.
func (c *Controller) Close() error {
	c.persist.Flush()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// update applies fn under the lock, then schedules persistence and
// notifies listeners if the viewport changed.
func (c *Controller) update(fn func(Viewport) Viewport) {
	c.mu.Lock()
	prev := c.vp
	next := fn(prev)
	if next == prev {
		c.mu.Unlock()
		return
	}
	c.vp = next
	closed := c.closed
	listeners := append([]func(Viewport){}, c.listeners...)
	c.mu.Unlock()

	if !closed {
		c.persist.Call(func() { c.write(next) })
	}
	for _, l := range listeners {
		l(next)
	}
}

func (c *Controller) write(v Viewport) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("encode viewport", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.backend.Set(ctx, c.key, data); err != nil {
		c.logger.Warn("persist viewport", "err", err)
	}
}
