// Package server exposes route controllers over HTTP, one per session.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/o0olele/breadcrumbs-go/math64"
	"github.com/o0olele/breadcrumbs-go/query"
	"github.com/o0olele/breadcrumbs-go/route"
)

// ErrSessionNotFound is returned for unknown or evicted session ids.
var ErrSessionNotFound = errors.New("session not found")

// Config configures the HTTP layer.
type Config struct {
	MaxSessions    int
	AllowedOrigins []string
}

// Server owns the session table.
type Server struct {
	cfg       Config
	opts      route.Options
	persister route.Persister
	logger    *zap.Logger
	sessions  *sessionTable
}

// New creates a server. persister may be nil, in which case trails live
// only as long as their session.
func New(cfg Config, opts route.Options, persister route.Persister, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		opts:      opts,
		persister: persister,
		logger:    logger,
	}
	s.sessions = newSessionTable(cfg.MaxSessions, s.evict)
	return s
}

// CreateSessionRequest is the optional body of POST /api/sessions.
type CreateSessionRequest struct {
	// Server identifies the world the client plays on. It selects the
	// persisted trail.
	Server string `json:"server,omitempty"`
}

type CreateSessionResponse struct {
	ID         string `json:"id"`
	PersistKey string `json:"persist_key"`
}

type TickResponse struct {
	Waypoints []query.Waypoint `json:"waypoints"`
	Status    route.Status     `json:"status"`
	Overlay   []math64.Vector3 `json:"overlay,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", s.createSessionHandler).Methods("POST")
	api.HandleFunc("/sessions/{id}", s.deleteSessionHandler).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/tick", s.tickHandler).Methods("POST")
	api.HandleFunc("/sessions/{id}/clear", s.clearHandler).Methods("POST")
	api.HandleFunc("/sessions/{id}/debug", s.debugHandler).Methods("POST")
	api.HandleFunc("/sessions/{id}/status", s.statusHandler).Methods("GET")
	api.HandleFunc("/sessions/{id}/overlay", s.overlayHandler).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// Close saves every session and empties the table.
func (s *Server) Close() error {
	var errs []error
	for _, sess := range s.sessions.drain() {
		if err := s.close(sess); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) evict(sess *session) {
	if err := s.close(sess); err != nil {
		s.logger.Warn("Failed to save evicted session", zap.String("session", sess.id), zap.Error(err))
		return
	}
	s.logger.Info("Session evicted", zap.String("session", sess.id))
}

// close saves a session that has left the table. Requests that looked it
// up before it left see it closed and get a 404.
func (s *Server) close(sess *session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.closed = true
	if err := sess.ctrl.Flush(); err != nil {
		return fmt.Errorf("session %s: %w", sess.id, err)
	}
	return nil
}

// acquire looks up the session named in the route and locks it. The caller
// must unlock sess.mu.
func (s *Server) acquire(r *http.Request) (*session, error) {
	id := mux.Vars(r)["id"]
	sess, ok := s.sessions.get(id)
	if !ok || !sess.acquire() {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON"))
		return
	}

	opts := s.opts
	if req.Server != "" {
		opts.PersistKey = route.SanitizeKey(req.Server)
	}

	id := uuid.NewString()
	logger := s.logger.With(zap.String("session", id))

	controllerOpts := []route.Option{route.WithLogger(logger)}
	if s.persister != nil {
		controllerOpts = append(controllerOpts, route.WithPersister(s.persister))
	}

	sess := &session{
		id:      id,
		key:     opts.PersistKey,
		created: time.Now(),
		ctrl:    route.NewController(opts, controllerOpts...),
	}
	s.sessions.put(sess)
	logger.Info("Session created", zap.String("persist_key", sess.key))

	writeJSON(w, http.StatusCreated, CreateSessionResponse{ID: id, PersistKey: sess.key})
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, ok := s.sessions.remove(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", ErrSessionNotFound, id))
		return
	}
	if err := s.close(sess); err != nil {
		s.logger.Warn("Failed to save closed session", zap.String("session", id), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) tickHandler(w http.ResponseWriter, r *http.Request) {
	var obs route.Observation
	if err := json.NewDecoder(r.Body).Decode(&obs); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON"))
		return
	}

	sess, err := s.acquire(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	waypoints := sess.ctrl.Tick(obs)
	resp := TickResponse{
		Waypoints: waypoints,
		Status:    sess.ctrl.Status(),
		Overlay:   sess.ctrl.Overlay(),
	}
	sess.mu.Unlock()

	if resp.Waypoints == nil {
		resp.Waypoints = []query.Waypoint{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) clearHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.acquire(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	sess.ctrl.Clear()
	status := sess.ctrl.Status()
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) debugHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.acquire(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	on := sess.ctrl.ToggleDebug()
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"debug": on})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.acquire(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	status := sess.ctrl.Status()
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) overlayHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.acquire(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	points := sess.ctrl.Overlay()
	sess.mu.Unlock()

	if points == nil {
		points = []math64.Vector3{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"points": points,
		"count":  len(points),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
