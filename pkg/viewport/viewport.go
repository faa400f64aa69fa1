// Package viewport implements the 2D camera over the layout canvas:
// cursor-anchored zoom, unclamped panning, centering on a canvas point and
// debounced persistence of {zoom, pan}.
//
// Screen coordinates are relative to the top-left of the visible container.
// A canvas point p appears on screen at pan + p*zoom.
package viewport

import (
	"math"
	"time"
)

// Zoom limits and defaults.
const (
	MinZoom      = 0.15
	MaxZoom      = 5.0
	DefaultZoom  = 1.0
	ButtonFactor = 1.2

	DefaultPersistDelay = 300 * time.Millisecond
)

// Point is a 2D coordinate, in screen or canvas space depending on use.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p * s.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

func (p Point) finite() bool { return finite(p.X) && finite(p.Y) }

// Viewport is the camera state.
type Viewport struct {
	Zoom float64 `json:"zoom"`
	Pan  Point   `json:"pan"`
}

// Default returns zoom 1 at the origin.
func Default() Viewport { return Viewport{Zoom: DefaultZoom} }

// ScreenToCanvas maps a container point to canvas space.
func (v Viewport) ScreenToCanvas(p Point) Point {
	return p.Sub(v.Pan).Scale(1 / v.Zoom)
}

// CanvasToScreen maps a canvas point to container space.
func (v Viewport) CanvasToScreen(p Point) Point {
	return v.Pan.Add(p.Scale(v.Zoom))
}

// ZoomAt returns the viewport zoomed by factor with the canvas point under
// cursor kept under cursor. Invalid factors return v unchanged.
func (v Viewport) ZoomAt(cursor Point, factor float64) Viewport {
	if !validFactor(factor) {
		return v
	}
	p := v.ScreenToCanvas(cursor)
	z := Clamp(v.Zoom * factor)
	return Viewport{Zoom: z, Pan: cursor.Sub(p.Scale(z))}
}

// CenterOn returns the viewport panned so canvas point p sits at the center
// of a w×h container, at the current zoom.
func (v Viewport) CenterOn(p Point, w, h float64) Viewport {
	return Viewport{Zoom: v.Zoom, Pan: Point{w / 2, h / 2}.Sub(p.Scale(v.Zoom))}
}

// Clamp limits z to [MinZoom, MaxZoom].
func Clamp(z float64) float64 {
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

// WheelFactor converts a wheel delta to a zoom factor. Negative deltas
// (wheel up) zoom in; 100 units is one 1.1× step.
func WheelFactor(deltaY float64) float64 {
	return math.Pow(1.1, -deltaY/100)
}

func validFactor(f float64) bool { return f > 0 && finite(f) }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
