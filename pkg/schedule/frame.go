package schedule

import (
	"sync"
	"time"
)

// FrameInterval approximates one display refresh at 60 Hz.
const FrameInterval = 16 * time.Millisecond

// FrameScheduler runs a callback at the next frame boundary.
type FrameScheduler interface {
	RequestFrame(f func())
}

// ClockFrames requests frames from a clock at a fixed interval.
type ClockFrames struct {
	Clock    Clock
	Interval time.Duration
}

// RequestFrame schedules f one interval from now.
func (c ClockFrames) RequestFrame(f func()) {
	clock := c.Clock
	if clock == nil {
		clock = RealClock{}
	}
	interval := c.Interval
	if interval <= 0 {
		interval = FrameInterval
	}
	clock.AfterFunc(interval, f)
}

// ManualFrames queues frame callbacks until [ManualFrames.RunFrame] is
// called. Event loops that already tick (bubbletea, tests) drive it.
type ManualFrames struct {
	mu      sync.Mutex
	pending []func()
}

// RequestFrame queues f for the next RunFrame.
func (m *ManualFrames) RequestFrame(f func()) {
	m.mu.Lock()
	m.pending = append(m.pending, f)
	m.mu.Unlock()
}

// RunFrame runs every queued callback and returns how many ran. Callbacks
// requested while running wait for the next frame.
func (m *ManualFrames) RunFrame() int {
	m.mu.Lock()
	queued := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, f := range queued {
		f()
	}
	return len(queued)
}

// Pending returns the number of queued callbacks.
func (m *ManualFrames) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Coalescer bounds updates on one input channel to one per frame. Values
// posted while a frame is pending are merged into the pending value.
type Coalescer[T any] struct {
	frames FrameScheduler
	merge  func(pending, next T) T
	apply  func(T)

	mu      sync.Mutex
	pending T
	has     bool
	gen     uint64
}

// NewCoalescer creates a coalescer. A nil merge keeps the newest value.
func NewCoalescer[T any](frames FrameScheduler, merge func(pending, next T) T, apply func(T)) *Coalescer[T] {
	if merge == nil {
		merge = func(_, next T) T { return next }
	}
	return &Coalescer[T]{frames: frames, merge: merge, apply: apply}
}

// Post records v. The first post after a frame requests a new frame; later
// posts only update the pending value.
func (c *Coalescer[T]) Post(v T) {
	c.mu.Lock()
	if c.has {
		c.pending = c.merge(c.pending, v)
		c.mu.Unlock()
		return
	}
	c.pending = v
	c.has = true
	gen := c.gen
	c.mu.Unlock()

	c.frames.RequestFrame(func() { c.fire(gen) })
}

func (c *Coalescer[T]) fire(gen uint64) {
	v, ok := c.take(gen)
	if ok {
		c.apply(v)
	}
}

func (c *Coalescer[T]) take(gen uint64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if !c.has || gen != c.gen {
		return zero, false
	}
	v := c.pending
	c.pending = zero
	c.has = false
	c.gen++
	return v, true
}

// Flush applies the pending value now instead of waiting for the frame.
func (c *Coalescer[T]) Flush() bool {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	v, ok := c.take(gen)
	if ok {
		c.apply(v)
	}
	return ok
}

// Cancel drops the pending value.
func (c *Coalescer[T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.pending = zero
	if c.has {
		c.has = false
		c.gen++
	}
}

// Pending reports whether a value is waiting for its frame.
func (c *Coalescer[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.has
}
