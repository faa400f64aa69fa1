package viewport

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/matzehuels/clustermap/pkg/schedule"
	"github.com/matzehuels/clustermap/pkg/store"
)

const tol = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) <= tol*math.Max(1, math.Abs(b)) }

func nearPoint(a, b Point) bool { return near(a.X, b.X) && near(a.Y, b.Y) }

func newTestController(t *testing.T) (*Controller, *schedule.FakeClock, *store.MemoryStore) {
	t.Helper()
	clock := schedule.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	backend := store.NewMemoryStore()
	return NewController(backend, Options{Clock: clock}), clock, backend
}

func TestZoomRoundTrip(t *testing.T) {
	c, _, _ := newTestController(t)
	cursor := Point{100, 100}
	c.ZoomAt(cursor, 1.2)
	c.ZoomAt(cursor, 1/1.2)

	v := c.Viewport()
	if !near(v.Zoom, 1) || !nearPoint(v.Pan, Point{}) {
		t.Errorf("after zoom in/out viewport = %+v, want zoom 1 pan 0", v)
	}
}

func TestZoomAtKeepsCursorAnchored(t *testing.T) {
	pans := []Point{{0, 0}, {-250, 80}, {1234.5, -99}}
	zooms := []float64{0.15, 0.5, 1, 2.75, 5}
	cursors := []Point{{0, 0}, {100, 100}, {640, 360}, {-20, 900}}
	factors := []float64{0.01, 0.5, 0.9, 1, 1.1, 1.2, 3, 100}

	for _, pan := range pans {
		for _, zoom := range zooms {
			for _, cursor := range cursors {
				for _, f := range factors {
					v := Viewport{Zoom: zoom, Pan: pan}
					under := v.ScreenToCanvas(cursor)
					after := v.ZoomAt(cursor, f)
					if got := after.CanvasToScreen(under); !nearPoint(got, cursor) {
						t.Fatalf("pan=%v zoom=%v cursor=%v f=%v: point moved to %v", pan, zoom, cursor, f, got)
					}
					if after.Zoom < MinZoom || after.Zoom > MaxZoom {
						t.Fatalf("zoom %v out of range", after.Zoom)
					}
				}
			}
		}
	}
}

func TestZoomAlwaysClamped(t *testing.T) {
	c, _, _ := newTestController(t)
	steps := []float64{10, 10, 10, 0.001, 0.5, 7, 0.01, 1.2, 1.2}
	for i, f := range steps {
		c.ZoomAt(Point{50, 50}, f)
		z := c.Viewport().Zoom
		if z < MinZoom || z > MaxZoom {
			t.Fatalf("step %d: zoom %v out of [%v, %v]", i, z, MinZoom, MaxZoom)
		}
	}
	c.ZoomAt(Point{}, 1000)
	if c.Viewport().Zoom != MaxZoom {
		t.Errorf("zoom = %v, want max", c.Viewport().Zoom)
	}
	c.ZoomAt(Point{}, 1e-6)
	if c.Viewport().Zoom != MinZoom {
		t.Errorf("zoom = %v, want min", c.Viewport().Zoom)
	}
}

func TestInvalidFactorsIgnored(t *testing.T) {
	c, _, _ := newTestController(t)
	for _, f := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		c.ZoomAt(Point{10, 10}, f)
		c.ZoomButton(f)
	}
	if v := c.Viewport(); v != Default() {
		t.Errorf("viewport changed by invalid factor: %+v", v)
	}
}

func TestPanByUnclamped(t *testing.T) {
	c, _, _ := newTestController(t)
	c.PanBy(-1e6, 3e6)
	c.PanBy(10, -10)
	if got := c.Viewport().Pan; got != (Point{-1e6 + 10, 3e6 - 10}) {
		t.Errorf("pan = %+v", got)
	}
}

func TestZoomButtonAnchorsAtCenter(t *testing.T) {
	c, _, _ := newTestController(t)
	c.SetContainer(800, 600)
	c.PanBy(-120, 45)
	center := Point{400, 300}
	under := c.ScreenToCanvas(center)
	c.ZoomIn()
	if got := c.CanvasToScreen(under); !nearPoint(got, center) {
		t.Errorf("center point moved to %v", got)
	}
	if !near(c.Viewport().Zoom, ButtonFactor) {
		t.Errorf("zoom = %v, want %v", c.Viewport().Zoom, ButtonFactor)
	}
	c.ZoomOut()
	if !near(c.Viewport().Zoom, 1) {
		t.Errorf("zoom after out = %v, want 1", c.Viewport().Zoom)
	}
}

func TestCenterOn(t *testing.T) {
	c, _, _ := newTestController(t)
	if c.CenterOn(300, 200) {
		t.Fatal("CenterOn succeeded with unmeasured container")
	}
	if c.Viewport() != Default() {
		t.Fatal("unmeasured CenterOn changed viewport")
	}

	c.SetContainer(1000, 500)
	c.ZoomAt(Point{}, 2)
	if !c.CenterOn(300, 200) {
		t.Fatal("CenterOn = false with measured container")
	}
	v := c.Viewport()
	wantPan := Point{500 - 300*v.Zoom, 250 - 200*v.Zoom}
	if !nearPoint(v.Pan, wantPan) {
		t.Errorf("pan = %+v, want %+v", v.Pan, wantPan)
	}
	if got := c.ScreenToCanvas(Point{500, 250}); !nearPoint(got, Point{300, 200}) {
		t.Errorf("container center maps to %+v", got)
	}
}

func TestFit(t *testing.T) {
	c, _, _ := newTestController(t)
	if c.Fit(2000, 1000) {
		t.Fatal("Fit succeeded with unmeasured container")
	}
	c.SetContainer(1000, 1000)
	if !c.Fit(2000, 1000) {
		t.Fatal("Fit = false")
	}
	v := c.Viewport()
	if !near(v.Zoom, 0.5) {
		t.Errorf("zoom = %v, want 0.5", v.Zoom)
	}
	if got := c.ScreenToCanvas(Point{500, 500}); !nearPoint(got, Point{1000, 500}) {
		t.Errorf("center maps to %+v, want canvas center", got)
	}

	// very large canvases stop at the minimum zoom
	c.Fit(1e6, 1e6)
	if c.Viewport().Zoom != MinZoom {
		t.Errorf("zoom = %v, want min", c.Viewport().Zoom)
	}
}

func TestPersistIsDebounced(t *testing.T) {
	ctx := context.Background()
	c, clock, backend := newTestController(t)

	for i := 0; i < 50; i++ {
		c.PanBy(1, 0)
		clock.Advance(10 * time.Millisecond)
	}
	if _, ok, _ := backend.Get(ctx, store.KeyViewport); ok {
		t.Fatal("viewport written during drag")
	}
	clock.Advance(DefaultPersistDelay)

	raw, ok, _ := backend.Get(ctx, store.KeyViewport)
	if !ok {
		t.Fatal("viewport not written after debounce window")
	}
	var v Viewport
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatal(err)
	}
	if v.Pan.X != 50 || v.Zoom != 1 {
		t.Errorf("persisted %+v, want pan.x 50", v)
	}
}

func TestFlushAndClose(t *testing.T) {
	ctx := context.Background()
	c, clock, backend := newTestController(t)
	c.PanBy(5, 5)
	if !c.PersistPending() {
		t.Fatal("no pending write")
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := backend.Get(ctx, store.KeyViewport); !ok {
		t.Fatal("Close did not flush")
	}

	_ = backend.Delete(ctx, store.KeyViewport)
	c.PanBy(1, 1)
	clock.Advance(time.Second)
	if _, ok, _ := backend.Get(ctx, store.KeyViewport); ok {
		t.Error("closed controller still persists")
	}
}

func TestRestore(t *testing.T) {
	tests := []struct {
		name   string
		blob   string
		want   Viewport
		wantOK bool
	}{
		{name: "valid", blob: `{"zoom":2,"pan":{"x":-30,"y":15}}`, want: Viewport{Zoom: 2, Pan: Point{-30, 15}}, wantOK: true},
		{name: "zoom above max", blob: `{"zoom":40,"pan":{"x":1,"y":2}}`, want: Viewport{Zoom: MaxZoom, Pan: Point{1, 2}}, wantOK: true},
		{name: "zoom below min", blob: `{"zoom":0.01,"pan":{"x":0,"y":0}}`, want: Viewport{Zoom: MinZoom}, wantOK: true},
		{name: "corrupt", blob: `{"zoom":`, want: Default()},
		{name: "zero zoom", blob: `{"zoom":0,"pan":{"x":5,"y":5}}`, want: Default()},
		{name: "negative zoom", blob: `{"zoom":-2}`, want: Default()},
		{name: "wrong type", blob: `"hello"`, want: Default()},
		{name: "missing", want: Default()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c, _, backend := newTestController(t)
			if tt.blob != "" {
				_ = backend.Set(ctx, store.KeyViewport, []byte(tt.blob))
			}
			c.PanBy(99, 99)
			c.persist.Cancel()

			if got := c.Restore(ctx); got != tt.wantOK {
				t.Errorf("Restore() = %v, want %v", got, tt.wantOK)
			}
			if got := c.Viewport(); got != tt.want {
				t.Errorf("viewport = %+v, want %+v", got, tt.want)
			}
			if c.PersistPending() {
				t.Error("Restore scheduled a write")
			}
		})
	}
}

func TestOnChange(t *testing.T) {
	c, _, _ := newTestController(t)
	var seen []Viewport
	c.OnChange(func(v Viewport) { seen = append(seen, v) })
	c.PanBy(1, 2)
	c.PanBy(0, 0) // no change, no event
	c.Reset()
	if len(seen) != 2 {
		t.Fatalf("events = %d, want 2", len(seen))
	}
	if seen[1] != Default() {
		t.Errorf("reset event = %+v", seen[1])
	}
}

func TestWheelFactor(t *testing.T) {
	if got := WheelFactor(-100); !near(got, 1.1) {
		t.Errorf("WheelFactor(-100) = %v, want 1.1", got)
	}
	if got := WheelFactor(100); !near(got, 1/1.1) {
		t.Errorf("WheelFactor(100) = %v", got)
	}
	if WheelFactor(0) != 1 {
		t.Error("WheelFactor(0) != 1")
	}
}
