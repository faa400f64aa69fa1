package schedule

import (
	"sync"
	"time"
)

// Debouncer delays a callback until no new call has arrived for the
// configured delay. Each call cancels the pending one; only the latest
// callback runs.
type Debouncer struct {
	clock Clock
	delay time.Duration

	mu    sync.Mutex
	timer Timer
	fn    func()
	gen   uint64
}

// NewDebouncer creates a debouncer. A nil clock uses [RealClock].
func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = RealClock{}
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Delay returns the debounce window.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Call schedules fn, replacing any pending callback.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.fn = fn
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.fn == nil {
		// superseded while the timer goroutine was starting
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()

	fn()
}

// Flush runs the pending callback immediately. It returns false when
// nothing was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.fn
	if fn == nil {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()

	fn()
	return true
}

// Cancel drops the pending callback. It returns false when nothing was
// pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fn == nil {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.fn = nil
	d.timer = nil
	return true
}

// Pending reports whether a callback is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}
