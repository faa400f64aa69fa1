package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/matzehuels/clustermap/pkg/buildinfo"
	"github.com/matzehuels/clustermap/pkg/errors"
	"github.com/matzehuels/clustermap/pkg/layout"
	"github.com/matzehuels/clustermap/pkg/render/svg"
	"github.com/matzehuels/clustermap/pkg/search"
	"github.com/matzehuels/clustermap/pkg/viewport"
)

type openRequest struct {
	ID string `json:"id,omitempty"`
}

type openResponse struct {
	ID       string            `json:"id"`
	Graph    *layout.Graph     `json:"graph"`
	Viewport viewport.Viewport `json:"viewport"`
}

type toggleRequest struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Expanded *bool  `json:"expanded,omitempty"`
}

type toggleResponse struct {
	Expanded bool          `json:"expanded"`
	Graph    *layout.Graph `json:"graph"`
}

type searchResponse struct {
	Query   string              `json:"query"`
	Results []search.Suggestion `json:"results"`
}

type teleportRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type teleportResponse struct {
	Moved     bool              `json:"moved"`
	Highlight *search.Highlight `json:"highlight,omitempty"`
	Viewport  viewport.Viewport `json:"viewport"`
}

type zoomRequest struct {
	// Cursor is omitted for the zoom buttons, which anchor on the center.
	Cursor *viewport.Point `json:"cursor,omitempty"`
	Factor float64         `json:"factor"`
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type containerRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.Len(), "build": buildinfo.Get()})
}

// openSession handles POST /api/sessions. A known id resumes that session.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			respondError(w, err)
			return
		}
	}
	id := uuid.Nil
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			respondError(w, errors.Wrap(errors.ErrCodeInvalidID, err, "invalid session id"))
			return
		}
		id = parsed
	}

	id, sess, err := s.Open(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, openResponse{ID: id.String(), Graph: sess.Graph(), Viewport: sess.Viewport()})
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := s.CloseSession(sessionFrom(r).id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionFrom(r).sess.Graph())
}

// getSVG renders the graph. ?view=1 draws it through the session viewport.
func (s *Server) getSVG(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r).sess
	opts := []svg.Option{svg.WithOptions(s.opts.Session.Layout), svg.WithInteraction()}
	if r.URL.Query().Get("view") != "" {
		if cw, ch := sess.Controller().Container(); cw > 0 && ch > 0 {
			opts = append(opts, svg.WithViewport(sess.Viewport(), cw, ch))
		}
	}
	if h, ok := sess.Highlight(); ok {
		opts = append(opts, svg.WithHighlight(h.X, h.Y))
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg.Render(sess.Graph(), opts...))
}

func (s *Server) getDiagnostics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionFrom(r).sess.Diagnostics())
}

func (s *Server) getExpand(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionFrom(r).sess.ExpandState())
}

// toggle flips a cluster or subcluster, or sets it when expanded is given.
func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := errors.ValidateID(req.ID); err != nil {
		respondError(w, err)
		return
	}

	sess := sessionFrom(r).sess
	ctx := r.Context()
	var expanded bool
	switch req.Kind {
	case "cluster":
		if req.Expanded != nil {
			sess.SetCluster(ctx, req.ID, *req.Expanded)
			expanded = *req.Expanded
		} else {
			expanded = sess.ToggleCluster(ctx, req.ID)
		}
	case "subcluster":
		if req.Expanded != nil {
			sess.SetSubcluster(ctx, req.ID, *req.Expanded)
			expanded = *req.Expanded
		} else {
			expanded = sess.ToggleSubcluster(ctx, req.ID)
		}
	default:
		respondError(w, errors.New(errors.ErrCodeInvalidInput, "kind must be cluster or subcluster, got %q", req.Kind))
		return
	}
	respondJSON(w, http.StatusOK, toggleResponse{Expanded: expanded, Graph: sess.Graph()})
}

func (s *Server) expandAll(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r).sess
	sess.ExpandAll(r.Context())
	respondJSON(w, http.StatusOK, sess.Graph())
}

func (s *Server) collapseAll(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r).sess
	sess.CollapseAll(r.Context())
	respondJSON(w, http.StatusOK, sess.Graph())
}

// search handles GET ?q=. The browser debounces keystrokes itself, so the
// query runs immediately.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results := sessionFrom(r).sess.Search(r.Context(), q)
	if results == nil {
		results = []search.Suggestion{}
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	respondJSON(w, http.StatusOK, searchResponse{Query: q, Results: results})
}

func (s *Server) teleport(w http.ResponseWriter, r *http.Request) {
	var req teleportRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if !finite(req.X, req.Y) {
		respondError(w, errors.New(errors.ErrCodeInvalidInput, "teleport target must be finite"))
		return
	}
	sess := sessionFrom(r).sess
	resp := teleportResponse{}
	if h, ok := sess.TeleportTo(r.Context(), req.X, req.Y); ok {
		resp.Moved = true
		resp.Highlight = &h
	}
	resp.Viewport = sess.Viewport()
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) getViewport(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionFrom(r).sess.Viewport())
}

// putViewport replaces the camera. Zoom is clamped.
func (s *Server) putViewport(w http.ResponseWriter, r *http.Request) {
	var v viewport.Viewport
	if err := decode(r, &v); err != nil {
		respondError(w, err)
		return
	}
	if !finite(v.Zoom, v.Pan.X, v.Pan.Y) {
		respondError(w, errors.New(errors.ErrCodeInvalidInput, "viewport must be finite"))
		return
	}
	sess := sessionFrom(r).sess
	sess.Controller().Set(v)
	respondJSON(w, http.StatusOK, sess.Viewport())
}

func (s *Server) zoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Factor <= 0 || !finite(req.Factor) {
		respondError(w, errors.New(errors.ErrCodeInvalidInput, "factor must be positive"))
		return
	}
	sess := sessionFrom(r).sess
	if req.Cursor != nil {
		sess.ZoomAt(*req.Cursor, req.Factor)
	} else {
		sess.ZoomButton(req.Factor)
	}
	respondJSON(w, http.StatusOK, sess.Viewport())
}

func (s *Server) pan(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	sess := sessionFrom(r).sess
	sess.PanBy(req.DX, req.DY)
	respondJSON(w, http.StatusOK, sess.Viewport())
}

func (s *Server) resetViewport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r).sess
	sess.ResetViewport()
	respondJSON(w, http.StatusOK, sess.Viewport())
}

// container reports the browser's canvas size. The first report after an
// open without a persisted viewport fits the map.
func (s *Server) container(w http.ResponseWriter, r *http.Request) {
	var req containerRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Width <= 0 || req.Height <= 0 || !finite(req.Width, req.Height) {
		respondError(w, errors.New(errors.ErrCodeInvalidInput, "container size must be positive"))
		return
	}
	sess := sessionFrom(r).sess
	sess.SetContainer(req.Width, req.Height)
	respondJSON(w, http.StatusOK, sess.Viewport())
}

func finite(fs ...float64) bool {
	for _, f := range fs {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
