package viewport

import (
	"sync"

	"github.com/matzehuels/clustermap/pkg/schedule"
)

type wheelEvent struct {
	cursor Point
	factor float64
}

// Pointer turns raw drag and wheel events into at most one controller
// update per frame for each channel.
//
// Drag records the latest absolute pointer position; the frame applies the
// distance from the last applied position. Wheel multiplies the factors of
// every event in the frame and zooms once at the latest cursor.
type Pointer struct {
	c     *Controller
	drag  *schedule.Coalescer[Point]
	wheel *schedule.Coalescer[wheelEvent]

	mu       sync.Mutex
	dragging bool
	applied  Point
}

// NewPointer wires a pointer to c. A nil frames scheduler uses
// schedule.ClockFrames on the real clock.
func NewPointer(c *Controller, frames schedule.FrameScheduler) *Pointer {
	if frames == nil {
		frames = schedule.ClockFrames{}
	}
	p := &Pointer{c: c}
	p.drag = schedule.NewCoalescer[Point](frames, nil, p.applyDrag)
	p.wheel = schedule.NewCoalescer(frames, mergeWheel, p.applyWheel)
	return p
}

// DragStart begins a drag at screen position pos.
func (p *Pointer) DragStart(pos Point) {
	p.drag.Cancel()
	p.mu.Lock()
	p.dragging = true
	p.applied = pos
	p.mu.Unlock()
}

// DragMove records the pointer at pos. Ignored outside a drag.
func (p *Pointer) DragMove(pos Point) {
	p.mu.Lock()
	dragging := p.dragging
	p.mu.Unlock()
	if dragging && pos.finite() {
		p.drag.Post(pos)
	}
}

// DragEnd applies any pending movement and ends the drag.
func (p *Pointer) DragEnd() {
	p.drag.Flush()
	p.mu.Lock()
	p.dragging = false
	p.mu.Unlock()
}

// Dragging reports whether a drag is in progress.
func (p *Pointer) Dragging() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dragging
}

// Wheel records a wheel event at cursor with vertical delta deltaY.
func (p *Pointer) Wheel(cursor Point, deltaY float64) {
	f := WheelFactor(deltaY)
	if !validFactor(f) || !cursor.finite() {
		return
	}
	p.wheel.Post(wheelEvent{cursor: cursor, factor: f})
}

// Flush applies pending drag and wheel updates immediately.
func (p *Pointer) Flush() {
	p.drag.Flush()
	p.wheel.Flush()
}

func (p *Pointer) applyDrag(pos Point) {
	p.mu.Lock()
	d := pos.Sub(p.applied)
	p.applied = pos
	p.mu.Unlock()
	p.c.PanBy(d.X, d.Y)
}

func (p *Pointer) applyWheel(e wheelEvent) {
	p.c.ZoomAt(e.cursor, e.factor)
}

func mergeWheel(pending, next wheelEvent) wheelEvent {
	return wheelEvent{cursor: next.cursor, factor: pending.factor * next.factor}
}
