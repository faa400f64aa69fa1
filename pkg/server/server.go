// Package server exposes map sessions over HTTP so a browser can draw the
// layout and drive the camera.
//
// Every browser tab opens a session (POST /api/sessions) and addresses it
// by id afterwards. Sessions share one dataset; persisted viewport and
// expand state is scoped per session id, so a tab that reopens with the
// same id gets its map back.
package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/matzehuels/clustermap/pkg/errors"
	"github.com/matzehuels/clustermap/pkg/mapview"
	"github.com/matzehuels/clustermap/pkg/model"
	"github.com/matzehuels/clustermap/pkg/schedule"
	"github.com/matzehuels/clustermap/pkg/store"
)

// Options configures a Server.
type Options struct {
	// Store backs every session, scoped by session id. Nil disables
	// persistence.
	Store store.Store
	// Session is the template for new sessions. Its Store, OnSuggestions
	// and OnHighlight fields are ignored.
	Session mapview.Options

	AllowedOrigins []string
	// MaxSessions caps open sessions. Opening one more closes the least
	// recently used session first; its state stays in Store. 0 means no cap.
	MaxSessions int
	// IdleTimeout closes sessions that were not used for this long. 0 keeps
	// sessions until they are closed explicitly.
	IdleTimeout time.Duration
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *log.Logger
}

// Server owns the shared dataset and the open sessions.
type Server struct {
	mu       sync.Mutex
	ds       *model.Dataset
	sessions map[uuid.UUID]*entry

	opts   Options
	clock  schedule.Clock
	logger *log.Logger
}

type entry struct {
	sess     *mapview.Session
	lastUsed time.Time
}

// New creates a server over ds.
func New(ds *model.Dataset, opts Options) (*Server, error) {
	if ds == nil {
		ds = &model.Dataset{}
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	ds.Prepare()
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Store == nil {
		opts.Store = store.NewNullStore()
	}
	clock := opts.Session.Clock
	if clock == nil {
		clock = schedule.RealClock{}
	}
	return &Server{
		ds:       ds,
		sessions: make(map[uuid.UUID]*entry),
		opts:     opts,
		clock:    clock,
		logger:   opts.Logger,
	}, nil
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics)
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.openSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Use(s.withSession)
			r.Delete("/", s.closeSession)

			r.Get("/graph", s.getGraph)
			r.Get("/graph.svg", s.getSVG)
			r.Get("/diagnostics", s.getDiagnostics)

			r.Get("/expand", s.getExpand)
			r.Post("/toggle", s.toggle)
			r.Post("/expand-all", s.expandAll)
			r.Post("/collapse-all", s.collapseAll)

			r.Get("/search", s.search)
			r.Post("/teleport", s.teleport)

			r.Get("/viewport", s.getViewport)
			r.Put("/viewport", s.putViewport)
			r.Post("/viewport/zoom", s.zoom)
			r.Post("/viewport/pan", s.pan)
			r.Post("/viewport/reset", s.resetViewport)
			r.Post("/viewport/container", s.container)
		})
	})
	return r
}

// Open returns the session for id, creating and restoring it when absent.
// A nil id creates a fresh session. Idle sessions are closed first, and at
// the session cap the least recently used one makes room.
func (s *Server) Open(ctx context.Context, id uuid.UUID) (uuid.UUID, *mapview.Session, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}

	s.mu.Lock()
	now := s.clock.Now()
	if e, ok := s.sessions[id]; ok {
		e.lastUsed = now
		s.mu.Unlock()
		return id, e.sess, nil
	}
	evicted := s.evictLocked(now, 1)

	opts := s.opts.Session
	opts.Store = store.Scoped(s.opts.Store, "session:"+id.String()+":")
	opts.OnSuggestions = nil
	opts.OnHighlight = nil
	if opts.Logger == nil {
		opts.Logger = s.logger.With("session", id.String()[:8])
	}
	sess, err := mapview.New(s.ds, opts)
	if err != nil {
		s.mu.Unlock()
		s.closeAll(evicted)
		return uuid.Nil, nil, err
	}
	sess.Open(ctx)
	s.sessions[id] = &entry{sess: sess, lastUsed: now}
	open := len(s.sessions)
	s.mu.Unlock()

	s.closeAll(evicted)
	s.logger.Info("session opened", "id", id, "open", open)
	return id, sess, nil
}

// Session looks up an open session and marks it used.
func (s *Server) Session(id uuid.UUID) (*mapview.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = s.clock.Now()
	return e.sess, true
}

// CloseSession flushes and forgets a session.
func (s *Server) CloseSession(id uuid.UUID) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "session %s not found", id)
	}
	return e.sess.Close()
}

// Sweep closes sessions idle for longer than IdleTimeout and returns how
// many were closed.
func (s *Server) Sweep() int {
	s.mu.Lock()
	evicted := s.evictLocked(s.clock.Now(), 0)
	s.mu.Unlock()
	s.closeAll(evicted)
	return len(evicted)
}

// evictLocked removes idle sessions, then least recently used ones until
// reserve more sessions fit under MaxSessions. Callers close the result
// after releasing the lock.
func (s *Server) evictLocked(now time.Time, reserve int) []*mapview.Session {
	var out []*mapview.Session
	if s.opts.IdleTimeout > 0 {
		for id, e := range s.sessions {
			if now.Sub(e.lastUsed) >= s.opts.IdleTimeout {
				delete(s.sessions, id)
				out = append(out, e.sess)
				s.logger.Debug("session expired", "id", id)
			}
		}
	}
	if s.opts.MaxSessions <= 0 {
		return out
	}
	for len(s.sessions)+reserve > s.opts.MaxSessions && len(s.sessions) > 0 {
		var oldest uuid.UUID
		var oldestAt time.Time
		for id, e := range s.sessions {
			if oldest == uuid.Nil || e.lastUsed.Before(oldestAt) {
				oldest, oldestAt = id, e.lastUsed
			}
		}
		out = append(out, s.sessions[oldest].sess)
		delete(s.sessions, oldest)
		s.logger.Debug("session evicted", "id", oldest, "cap", s.opts.MaxSessions)
	}
	return out
}

func (s *Server) closeAll(sessions []*mapview.Session) {
	for _, sess := range sessions {
		if err := sess.Close(); err != nil {
			s.logger.Warn("close session", "err", err)
		}
	}
}

// SetDataset swaps the dataset of the server and every open session.
func (s *Server) SetDataset(ctx context.Context, ds *model.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	ds.Prepare()

	s.mu.Lock()
	s.ds = ds
	sessions := make([]*mapview.Session, 0, len(s.sessions))
	for _, e := range s.sessions {
		sessions = append(sessions, e.sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		if err := sess.SetDataset(ctx, ds); err != nil {
			return err
		}
	}
	s.logger.Info("dataset replaced", "clusters", len(ds.Clusters), "sessions", len(sessions))
	return nil
}

// Len returns the number of open sessions.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close closes every session.
func (s *Server) Close() error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[uuid.UUID]*entry)
	s.mu.Unlock()

	var first error
	for _, e := range sessions {
		if err := e.sess.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
