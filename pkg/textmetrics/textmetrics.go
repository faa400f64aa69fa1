// Package textmetrics estimates label widths for the map layout.
//
// The estimate is deliberately coarse: every rune is assumed to be
// CharWidthRatio em wide, plus fixed horizontal padding. It is good enough to
// keep boxes from overlapping on a grid, not to typeset text.
//
// Estimates are memoized per (text, font size) pair. The cache is unbounded
// for the lifetime of a [Cache]; label sets are small and stable within a
// session.
package textmetrics

import (
	"sync"
	"unicode/utf8"
)

const (
	// CharWidthRatio is the assumed average glyph width in em.
	CharWidthRatio = 0.6

	// Padding is added to every measured width (left + right inset).
	Padding = 16.0
)

type key struct {
	text string
	size float64
}

// Cache memoizes width estimates. The zero value is ready to use and safe
// for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	widths map[key]float64
	misses int
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{widths: make(map[key]float64)}
}

// Default is shared by callers that do not inject their own cache.
var Default = New()

// Estimate computes the width without touching any cache.
func Estimate(text string, fontSize float64) float64 {
	return float64(utf8.RuneCountInString(text))*fontSize*CharWidthRatio + Padding
}

// Measure returns the estimated pixel width of text rendered at fontSize.
func (c *Cache) Measure(text string, fontSize float64) float64 {
	k := key{text, fontSize}

	c.mu.RLock()
	w, ok := c.widths[k]
	c.mu.RUnlock()
	if ok {
		return w
	}

	w = Estimate(text, fontSize)

	c.mu.Lock()
	if c.widths == nil {
		c.widths = make(map[key]float64)
	}
	c.widths[k] = w
	c.misses++
	c.mu.Unlock()
	return w
}

// Len returns the number of memoized entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.widths)
}

// Misses returns how many measurements were computed rather than served
// from the cache.
func (c *Cache) Misses() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.misses
}
