// Package http is the request dispatcher: it mounts one route per interned
// flow position on a chi router, resolves the inbound session, and drives
// the position instance through the request life cycle under the session
// lock.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/flow"
	"github.com/aretw0/espalier/pkg/observability"
	"github.com/aretw0/espalier/pkg/session"
	"github.com/go-chi/chi/v5"
)

// Server dispatches flow requests.
type Server struct {
	reg      *flow.Registry
	sessions *session.Manager
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewHandler binds the registry (if not already bound) and returns the
// mounted router: one GET and one POST route per reachable position, the
// pattern being the position's canonical route under the registry base path.
func NewHandler(reg *flow.Registry, sessions *session.Manager, opts ...Option) (http.Handler, error) {
	s := &Server{
		reg:      reg,
		sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := reg.Bind(); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	for _, pos := range reg.Positions() {
		h := s.position(pos)
		r.Get(pos.RoutePattern(), h)
		r.Post(pos.RoutePattern(), h)
	}
	return r, nil
}

func (s *Server) position(pos *flow.Position) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		result := s.serve(pos, w, r)
		if s.metrics != nil {
			s.metrics.Observe(pos.Name(), result, time.Since(start))
		}
	}
}

// serve resolves the session for the request and runs the life cycle. The
// returned string is the metrics result label.
func (s *Server) serve(pos *flow.Position, w http.ResponseWriter, r *http.Request) string {
	ctx := r.Context()

	id := s.sessionID(r)
	switch {
	case id == "":
		// A fresh session may only be created at an entry point.
		if !s.reg.IsEntryPosition(pos) {
			http.Error(w, "no session", http.StatusNotFound)
			return "client_error"
		}
		st, err := s.sessions.Create(ctx)
		if err != nil {
			return s.fail(pos, w, err)
		}
		// Redirect so the client learns its session identifier before the
		// position is served.
		s.redirectWithSession(w, r, st.ID)
		return "new_session"

	case !session.ValidID(id):
		// Reject before any store access.
		http.Error(w, "invalid session identifier", http.StatusBadRequest)
		return "client_error"

	default:
		if _, err := s.sessions.Store().Load(ctx, id); err != nil {
			if !errors.Is(err, flow.ErrSessionNotFound) {
				return s.fail(pos, w, err)
			}
			if !s.reg.IsEntryPosition(pos) {
				http.Error(w, "session expired", http.StatusNotFound)
				return "session_expired"
			}
			// Stale identifier at an entry point: start over with a fresh
			// session rather than resurrecting the client-supplied ID.
			st, err := s.sessions.Create(ctx)
			if err != nil {
				return s.fail(pos, w, err)
			}
			s.redirectWithSession(w, r, st.ID)
			return "new_session"
		}
	}

	err := s.sessions.WithLock(ctx, id, func(ctx context.Context) error {
		st, err := s.sessions.Store().Load(ctx, id)
		if err != nil {
			return err
		}
		inst := pos.NewInstance(st)
		return inst.Handle(w, r.WithContext(ctx), s.sessions.Store())
	})
	if err != nil {
		if errors.Is(err, flow.ErrSessionNotFound) {
			// The session vanished between the probe and the lock.
			http.Error(w, "session expired", http.StatusNotFound)
			return "session_expired"
		}
		return s.fail(pos, w, err)
	}
	return "ok"
}

// redirectWithSession sends the client back to the same URL carrying the
// session identifier, so every subsequent request self-identifies.
func (s *Server) redirectWithSession(w http.ResponseWriter, r *http.Request, id string) {
	q := r.URL.Query()
	q.Set(s.reg.SessionParam(), id)
	u := *r.URL
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// sessionID extracts the session identifier from the query string or, for
// form submissions, the request body.
func (s *Server) sessionID(r *http.Request) string {
	param := s.reg.SessionParam()
	if id := r.URL.Query().Get(param); id != "" {
		return id
	}
	if r.Method == http.MethodPost {
		return r.PostFormValue(param)
	}
	return ""
}

// fail handles fatal faults: configuration and programming errors propagate
// here as 5xx with a diagnostic identifying the offending position.
func (s *Server) fail(pos *flow.Position, w http.ResponseWriter, err error) string {
	s.logger.Error("flow request failed",
		"position", pos.Name(),
		"err", err,
	)
	http.Error(w, "internal error", http.StatusInternalServerError)
	return "fatal"
}
