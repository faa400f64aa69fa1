package textmetrics

import (
	"sync"
	"testing"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		size float64
		want float64
	}{
		{"empty", "", 14, Padding},
		{"ascii", "Beach", 10, 5*10*CharWidthRatio + Padding},
		{"runes not bytes", "пляж", 10, 4*10*CharWidthRatio + Padding},
		{"scales with size", "ab", 20, 2*20*CharWidthRatio + Padding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.text, tt.size); got != tt.want {
				t.Errorf("Estimate(%q, %v) = %v, want %v", tt.text, tt.size, got, tt.want)
			}
		})
	}
}

func TestMeasureMemoizes(t *testing.T) {
	c := New()

	a := c.Measure("Tours", 16)
	b := c.Measure("Tours", 16)
	if a != b {
		t.Errorf("Measure not deterministic: %v != %v", a, b)
	}
	if c.Len() != 1 || c.Misses() != 1 {
		t.Errorf("Len() = %d, Misses() = %d, want 1, 1", c.Len(), c.Misses())
	}

	c.Measure("Tours", 14)
	if c.Len() != 2 {
		t.Errorf("different size should be a new entry, Len() = %d", c.Len())
	}
}

func TestZeroValueCache(t *testing.T) {
	var c Cache
	if got := c.Measure("x", 10); got != Estimate("x", 10) {
		t.Errorf("zero-value Measure = %v", got)
	}
}

func TestConcurrentMeasure(t *testing.T) {
	c := New()
	labels := []string{"Tours", "Beach", "Mountain", "City breaks"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, l := range labels {
				c.Measure(l, 14)
			}
		}()
	}
	wg.Wait()

	if c.Len() != len(labels) {
		t.Errorf("Len() = %d, want %d", c.Len(), len(labels))
	}
}
