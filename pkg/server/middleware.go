package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/clustermap/pkg/errors"
	"github.com/matzehuels/clustermap/pkg/mapview"
	"github.com/matzehuels/clustermap/pkg/observability"
)

// requestLogger logs each request and reports it to the HTTP hooks under
// its route pattern, so ids in paths do not explode metric cardinality.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			d := time.Since(start)
			observability.HTTP().OnRequest(r.Context(), r.Method, route, status, d)
			logger.Debug("http request",
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", d,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type sessionKey struct{}

// withSession resolves {sessionID} and stores the session in the context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
		if err != nil {
			respondError(w, errors.Wrap(errors.ErrCodeInvalidID, err, "invalid session id"))
			return
		}
		sess, ok := s.Session(id)
		if !ok {
			respondError(w, errors.New(errors.ErrCodeNotFound, "session %s not found", id))
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sessionRef{id: id, sess: sess})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type sessionRef struct {
	id   uuid.UUID
	sess *mapview.Session
}

func sessionFrom(r *http.Request) sessionRef {
	ref, _ := r.Context().Value(sessionKey{}).(sessionRef)
	return ref
}
