package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/clustermap/pkg/errors"
	"github.com/matzehuels/clustermap/pkg/layout"
	"github.com/matzehuels/clustermap/pkg/mapview"
	"github.com/matzehuels/clustermap/pkg/model"
	"github.com/matzehuels/clustermap/pkg/observability"
	"github.com/matzehuels/clustermap/pkg/schedule"
	"github.com/matzehuels/clustermap/pkg/search"
	"github.com/matzehuels/clustermap/pkg/store"
	"github.com/matzehuels/clustermap/pkg/viewport"
)

func dataset() *model.Dataset {
	return &model.Dataset{
		Clusters: []model.Cluster{{
			ID: "c1", Name: "Tours",
			Types: []model.Type{{ID: "beach", Name: "Beach"}, {ID: "mountain", Name: "Mountain"}},
		}},
		Configs: []model.Config{{SubclusterID: "beach", Models: []string{"m1"}}},
		Catalogue: model.Catalogue{
			SearchModels: []model.SearchModel{{ID: "m1", Name: "Sunny"}},
		},
	}
}

type fixture struct {
	t     *testing.T
	srv   *Server
	http  *httptest.Server
	store *store.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemoryStore()
	srv, err := New(dataset(), Options{
		Store:   mem,
		Session: mapview.Options{Clock: schedule.NewFakeClock(testStart)},
		Metrics: http.NotFoundHandler(),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return &fixture{t: t, srv: srv, http: ts, store: mem}
}

func (f *fixture) do(method, path string, body any, out any) int {
	f.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.http.URL+path, rdr)
	require.NoError(f.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.http.Client().Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(f.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) open() string {
	f.t.Helper()
	var resp openResponse
	require.Equal(f.t, http.StatusCreated, f.do(http.MethodPost, "/api/sessions", nil, &resp))
	require.NotEmpty(f.t, resp.ID)
	return "/api/sessions/" + resp.ID
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	var body map[string]any
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestOpenReturnsCollapsedGraph(t *testing.T) {
	f := newFixture(t)
	var resp openResponse
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/sessions", nil, &resp))

	_, err := uuid.Parse(resp.ID)
	require.NoError(t, err)
	require.Len(t, resp.Graph.Boxes, 1)
	assert.Equal(t, layout.KindCluster, resp.Graph.Boxes[0].Kind)
	assert.Equal(t, viewport.Default(), resp.Viewport)
	assert.Equal(t, 1, f.srv.Len())
}

func TestToggleAndSearchAndTeleport(t *testing.T) {
	f := newFixture(t)
	base := f.open()

	var tr toggleResponse
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/toggle", toggleRequest{Kind: "cluster", ID: "c1"}, &tr))
	assert.True(t, tr.Expanded)
	assert.Len(t, tr.Graph.Subclusters(), 2)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/toggle", toggleRequest{Kind: "subcluster", ID: "beach"}, &tr))
	assert.True(t, tr.Expanded)

	var sr searchResponse
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, base+"/search?q=sun", nil, &sr))
	require.Len(t, sr.Results, 1)
	hit := sr.Results[0]
	assert.Equal(t, search.KindModel, hit.Kind)

	// unmeasured container: teleport is a no-op
	var tp teleportResponse
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/teleport", teleportRequest{X: hit.X, Y: hit.Y}, &tp))
	assert.False(t, tp.Moved)

	var v viewport.Viewport
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/viewport/container", containerRequest{Width: 1000, Height: 800}, &v))
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/teleport", teleportRequest{X: hit.X, Y: hit.Y}, &tp))
	require.True(t, tp.Moved)
	require.NotNil(t, tp.Highlight)
	screen := tp.Viewport.CanvasToScreen(viewport.Point{X: hit.X, Y: hit.Y})
	assert.InDelta(t, 500, screen.X, 1e-9)
	assert.InDelta(t, 400, screen.Y, 1e-9)
}

func TestSetExpandedExplicitly(t *testing.T) {
	f := newFixture(t)
	base := f.open()
	off := false
	var tr toggleResponse
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/toggle", toggleRequest{Kind: "cluster", ID: "c1", Expanded: &off}, &tr))
	assert.False(t, tr.Expanded)
	assert.Empty(t, tr.Graph.Subclusters())
}

func TestExpandAllCollapseAll(t *testing.T) {
	f := newFixture(t)
	base := f.open()

	var g layout.Graph
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/expand-all", nil, &g))
	assert.NotEmpty(t, g.ByKind(layout.KindModels))

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/collapse-all", nil, &g))
	assert.Len(t, g.Boxes, 1)
}

func TestViewportRoutes(t *testing.T) {
	f := newFixture(t)
	base := f.open()

	var v viewport.Viewport
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/viewport/zoom",
		zoomRequest{Cursor: &viewport.Point{X: 100, Y: 100}, Factor: 2}, &v))
	assert.InDelta(t, 2, v.Zoom, 1e-9)
	assert.InDelta(t, -100, v.Pan.X, 1e-9)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/viewport/pan", panRequest{DX: 10, DY: -5}, &v))
	assert.InDelta(t, -90, v.Pan.X, 1e-9)
	assert.InDelta(t, -105, v.Pan.Y, 1e-9)

	require.Equal(t, http.StatusOK, f.do(http.MethodPut, base+"/viewport", viewport.Viewport{Zoom: 50}, &v))
	assert.Equal(t, viewport.MaxZoom, v.Zoom)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/viewport/reset", nil, &v))
	assert.Equal(t, viewport.Default(), v)
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t)
	base := f.open()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   errors.Code
	}{
		{"bad kind", http.MethodPost, base + "/toggle", toggleRequest{Kind: "model", ID: "m1"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"empty id", http.MethodPost, base + "/toggle", toggleRequest{Kind: "cluster"}, http.StatusBadRequest, errors.ErrCodeInvalidID},
		{"zero factor", http.MethodPost, base + "/viewport/zoom", zoomRequest{Factor: 0}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"zero container", http.MethodPost, base + "/viewport/container", containerRequest{}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown field", http.MethodPost, base + "/viewport/pan", map[string]int{"x": 1}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad session id", http.MethodGet, "/api/sessions/nope/graph", nil, http.StatusBadRequest, errors.ErrCodeInvalidID},
		{"unknown session", http.MethodGet, "/api/sessions/" + uuid.NewString() + "/graph", nil, http.StatusNotFound, errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			assert.Equal(t, tt.status, f.do(tt.method, tt.path, tt.body, &body))
			assert.Equal(t, string(tt.code), body.Code)
		})
	}
}

func TestResumeSessionRestoresState(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	var resp openResponse
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/sessions", openRequest{ID: id.String()}, &resp))
	base := "/api/sessions/" + id.String()
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/toggle", toggleRequest{Kind: "cluster", ID: "c1"}, nil))
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/viewport/pan", panRequest{DX: 30, DY: 40}, nil))

	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, base, nil, nil))
	assert.Equal(t, 0, f.srv.Len())

	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/sessions", openRequest{ID: id.String()}, &resp))
	assert.Len(t, resp.Graph.Subclusters(), 2)
	assert.Equal(t, viewport.Point{X: 30, Y: 40}, resp.Viewport.Pan)

	for _, key := range []string{store.KeyViewport, store.KeyExpand} {
		_, ok, err := f.store.Get(context.Background(), "session:"+id.String()+":"+key)
		require.NoError(t, err)
		assert.True(t, ok, key)
	}
}

func TestSetDatasetReachesSessions(t *testing.T) {
	f := newFixture(t)
	base := f.open()

	ds := dataset()
	ds.Clusters = append(ds.Clusters, model.Cluster{ID: "c2", Name: "Hotels"})
	require.NoError(t, f.srv.SetDataset(context.Background(), ds))

	var g layout.Graph
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, base+"/graph", nil, &g))
	assert.Len(t, g.Clusters(), 2)

	bad := &model.Dataset{Clusters: []model.Cluster{{ID: "x"}, {ID: "x"}}}
	assert.True(t, errors.Is(f.srv.SetDataset(context.Background(), bad), errors.ErrCodeInvalidDataset))
}

func TestSVGRoute(t *testing.T) {
	f := newFixture(t)
	base := f.open()
	resp, err := f.http.Client().Get(f.http.URL + base + "/graph.svg")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.True(t, strings.HasPrefix(buf.String(), "<svg"))
}

var testStart = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type routeRecorder struct {
	observability.NoopHTTPHooks
	mu   sync.Mutex
	seen []string
}

func (r *routeRecorder) OnRequest(_ context.Context, method, route string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, method+" "+route)
}

func (r *routeRecorder) routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestRequestHooksUseRoutePattern(t *testing.T) {
	rec := &routeRecorder{}
	observability.SetHTTPHooks(rec)
	t.Cleanup(observability.Reset)

	f := newFixture(t)
	base := f.open()
	f.do(http.MethodGet, base+"/graph", nil, nil)

	assert.Contains(t, rec.routes(), "GET /api/sessions/{sessionID}/graph")
}

func TestStatusFor(t *testing.T) {
	tests := map[errors.Code]int{
		errors.ErrCodeInvalidDataset:   http.StatusBadRequest,
		errors.ErrCodeNotFound:         http.StatusNotFound,
		errors.ErrCodeStoreUnavailable: http.StatusServiceUnavailable,
		errors.ErrCodeInternal:         http.StatusInternalServerError,
		"":                             http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, statusFor(code), code)
	}
}

func TestOpenWhileSiblingSessionsLayOut(t *testing.T) {
	srv, err := New(dataset(), Options{})
	require.NoError(t, err)
	defer srv.Close()

	ctx := context.Background()
	_, a, err := srv.Open(ctx, uuid.Nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			a.ToggleCluster(ctx, "c1")
			a.ToggleSubcluster(ctx, "beach")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, _, err := srv.Open(ctx, uuid.Nil)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	// Reloads share one prepared dataset across every session too.
	ds := dataset()
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			a.ToggleSubcluster(ctx, "beach")
		}
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, srv.SetDataset(ctx, ds))
	}()
	wg.Wait()
	assert.True(t, ds.Prepared())
	assert.Equal(t, 51, srv.Len())
}

func newClockedServer(t *testing.T, opts Options) (*Server, *schedule.FakeClock, *store.MemoryStore) {
	t.Helper()
	clock := schedule.NewFakeClock(testStart)
	mem := store.NewMemoryStore()
	opts.Store = mem
	opts.Session = mapview.Options{Clock: clock}
	srv, err := New(dataset(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv, clock, mem
}

func TestMaxSessionsEvictsLeastRecentlyUsed(t *testing.T) {
	srv, clock, _ := newClockedServer(t, Options{MaxSessions: 2})
	ctx := context.Background()

	a, _, err := srv.Open(ctx, uuid.Nil)
	require.NoError(t, err)
	clock.Advance(time.Second)
	b, _, err := srv.Open(ctx, uuid.Nil)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, ok := srv.Session(a)
	require.True(t, ok)
	clock.Advance(time.Second)

	c, _, err := srv.Open(ctx, uuid.Nil)
	require.NoError(t, err)

	assert.Equal(t, 2, srv.Len())
	_, ok = srv.Session(b)
	assert.False(t, ok, "least recently used session should be evicted")
	for _, id := range []uuid.UUID{a, c} {
		_, ok := srv.Session(id)
		assert.True(t, ok, id.String())
	}
}

func TestEvictedSessionResumesFromStore(t *testing.T) {
	srv, clock, _ := newClockedServer(t, Options{MaxSessions: 1})
	ctx := context.Background()

	a, sess, err := srv.Open(ctx, uuid.Nil)
	require.NoError(t, err)
	sess.ToggleCluster(ctx, "c1")
	clock.Advance(time.Second)

	_, _, err = srv.Open(ctx, uuid.Nil)
	require.NoError(t, err)
	_, ok := srv.Session(a)
	require.False(t, ok)

	_, resumed, err := srv.Open(ctx, a)
	require.NoError(t, err)
	assert.True(t, resumed.ExpandState().Clusters["c1"])
	assert.Equal(t, 1, srv.Len())
}

func TestSweepClosesIdleSessions(t *testing.T) {
	srv, clock, _ := newClockedServer(t, Options{IdleTimeout: time.Minute})
	ctx := context.Background()

	a, _, err := srv.Open(ctx, uuid.Nil)
	require.NoError(t, err)
	clock.Advance(40 * time.Second)
	b, _, err := srv.Open(ctx, uuid.Nil)
	require.NoError(t, err)

	assert.Equal(t, 0, srv.Sweep())
	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, srv.Sweep())

	_, ok := srv.Session(a)
	assert.False(t, ok)
	_, ok = srv.Session(b)
	assert.True(t, ok)
}

func TestNoLimitsKeepSessions(t *testing.T) {
	srv, clock, _ := newClockedServer(t, Options{})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _, err := srv.Open(ctx, uuid.Nil)
		require.NoError(t, err)
	}
	clock.Advance(24 * time.Hour)
	assert.Equal(t, 0, srv.Sweep())
	assert.Equal(t, 5, srv.Len())
}
