package search

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/clustermap/pkg/schedule"
)

// DefaultHighlight is how long a teleport highlight lives.
const DefaultHighlight = 2000 * time.Millisecond

// Centerer pans a viewport so a canvas point is centered. It returns false
// when the container has not been measured.
type Centerer interface {
	CenterOn(x, y float64) bool
}

// Highlight marks the canvas point of the last teleport. The renderer
// animates it; the Teleporter only creates and clears it.
type Highlight struct {
	ID uuid.UUID `json:"id"`
	X  float64   `json:"x"`
	Y  float64   `json:"y"`
	At time.Time `json:"at"`
}

// TeleporterOptions configures a Teleporter.
type TeleporterOptions struct {
	Clock    schedule.Clock
	Duration time.Duration
	// OnChange receives each new highlight and nil when it clears.
	OnChange func(*Highlight)
}

// Teleporter centers the viewport on search results.
type Teleporter struct {
	target   Centerer
	clock    schedule.Clock
	duration time.Duration
	onChange func(*Highlight)

	mu      sync.Mutex
	current *Highlight
	timer   schedule.Timer
}

// NewTeleporter creates a teleporter driving target.
func NewTeleporter(target Centerer, opts TeleporterOptions) *Teleporter {
	if opts.Clock == nil {
		opts.Clock = schedule.RealClock{}
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultHighlight
	}
	if opts.OnChange == nil {
		opts.OnChange = func(*Highlight) {}
	}
	return &Teleporter{
		target:   target,
		clock:    opts.Clock,
		duration: opts.Duration,
		onChange: opts.OnChange,
	}
}

// TeleportTo centers canvas point (x, y) and starts a highlight. Nothing
// happens while the container is unmeasured.
func (t *Teleporter) TeleportTo(x, y float64) (Highlight, bool) {
	if !t.target.CenterOn(x, y) {
		return Highlight{}, false
	}

	h := Highlight{ID: uuid.New(), X: x, Y: y, At: t.clock.Now()}

	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.current = &h
	id := h.ID
	t.timer = t.clock.AfterFunc(t.duration, func() { t.clear(id) })
	t.mu.Unlock()

	t.onChange(&h)
	return h, true
}

// Teleport jumps to a suggestion's anchor.
func (t *Teleporter) Teleport(s Suggestion) (Highlight, bool) {
	return t.TeleportTo(s.X, s.Y)
}

// Current returns the live highlight, if any.
func (t *Teleporter) Current() (Highlight, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Highlight{}, false
	}
	return *t.current, true
}

// Close stops the clear timer and drops the highlight.
func (t *Teleporter) Close() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.current = nil
	t.mu.Unlock()
}

// clear drops the highlight only if no newer teleport replaced it.
func (t *Teleporter) clear(id uuid.UUID) {
	t.mu.Lock()
	if t.current == nil || t.current.ID != id {
		t.mu.Unlock()
		return
	}
	t.current = nil
	t.timer = nil
	t.mu.Unlock()
	t.onChange(nil)
}
