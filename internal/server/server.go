package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/okent/rekindle/internal/engine"
	"github.com/okent/rekindle/internal/store"
)

// Server is the rekindle HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server with the given database, engine, and version
// string.
func New(db *store.DB, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/users/{userID}/batch", s.handleGenerateBatch)
		r.Get("/users/{userID}/suggestions", s.handleListSuggestions)
		r.Post("/users/{userID}/events", s.handleEventTrigger)
		r.Get("/users/{userID}/feed.ics", s.handleFeed)

		r.Post("/suggestions/{suggestionID}/accept", s.handleAccept)
		r.Post("/suggestions/{suggestionID}/dismiss", s.handleDismiss)
		r.Post("/suggestions/{suggestionID}/snooze", s.handleSnooze)
		r.Post("/suggestions/batch-accept", s.handleBatchAccept)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}
