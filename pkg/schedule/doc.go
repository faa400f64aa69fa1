// Package schedule provides the two scheduling devices the map engine uses
// instead of a UI framework's effect system.
//
//   - [Debouncer]: cancel-and-reschedule timer. Only the most recent call
//     inside the window survives. Used for search matching and viewport
//     persistence.
//   - [Coalescer]: at most one pending frame per input channel. Events that
//     arrive before the frame fires are merged into the pending value
//     instead of queuing another frame. Used for drag and wheel input.
//
// Both run on a [Clock] so tests can drive time with [FakeClock].
package schedule
