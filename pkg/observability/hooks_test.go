package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	m := NoopMapHooks{}
	m.OnLayout(ctx, 10, 4, 1, time.Millisecond)
	m.OnSearch(ctx, 3, time.Microsecond)
	m.OnTeleport(ctx, true)

	s := NoopStoreHooks{}
	s.OnStoreRead(ctx, "file", true, nil)
	s.OnStoreWrite(ctx, "redis", 64, errors.New("down"))

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "/api/graph", 200, time.Millisecond)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Map().(NoopMapHooks); !ok {
		t.Error("Map() should return NoopMapHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	c := NewCollector("test")
	SetMapHooks(c)
	SetStoreHooks(c)
	SetHTTPHooks(c)
	if Map() != MapHooks(c) || Store() != StoreHooks(c) || HTTP() != HTTPHooks(c) {
		t.Error("setters did not register the collector")
	}

	SetMapHooks(nil)
	if Map() != MapHooks(c) {
		t.Error("SetMapHooks(nil) should be ignored")
	}

	Reset()
	if _, ok := Map().(NoopMapHooks); !ok {
		t.Error("Reset() should restore NoopMapHooks")
	}
}

func TestCollectorRecords(t *testing.T) {
	ctx := context.Background()
	c := NewCollector("clustermap")

	c.OnLayout(ctx, 12, 5, 2, 3*time.Millisecond)
	c.OnLayout(ctx, 7, 0, 0, time.Millisecond)
	c.OnTeleport(ctx, true)
	c.OnTeleport(ctx, false)
	c.OnTeleport(ctx, false)
	c.OnStoreRead(ctx, "file", true, nil)
	c.OnStoreRead(ctx, "file", false, nil)
	c.OnStoreWrite(ctx, "redis", 10, errors.New("down"))
	c.OnRequest(ctx, "GET", "/api/graph", 200, time.Millisecond)

	if got := testutil.ToFloat64(c.LayoutPasses); got != 2 {
		t.Errorf("layout passes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.LayoutBoxes); got != 7 {
		t.Errorf("layout boxes = %v, want 7", got)
	}
	if got := testutil.ToFloat64(c.Teleports.WithLabelValues("skipped")); got != 2 {
		t.Errorf("skipped teleports = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.StoreOps.WithLabelValues("redis", "write", "error")); got != 1 {
		t.Errorf("redis write errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/graph", "200")); got != 1 {
		t.Errorf("http requests = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "clustermap_layout_passes_total 2") {
		t.Errorf("exposition missing layout counter:\n%s", rec.Body.String())
	}
}
