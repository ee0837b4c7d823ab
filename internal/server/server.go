package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lazypower/recall/internal/engine"
	"github.com/lazypower/recall/internal/store"
)

// Server is the recall HTTP API server. All writes go through the engine;
// reads hit the store directly.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server over the given store and engine.
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

		r.Post("/observe", s.handleObserve)
		r.Post("/reviews/{conceptID}", s.handleReview)
		r.Post("/reviews/{conceptID}/archive", s.handleArchive)

		r.Get("/due", s.handleDue)
		r.Get("/concepts", s.handleConcepts)
		r.Get("/concepts/{conceptID}", s.handleConcept)
		r.Get("/concepts/{conceptID}/curve", s.handleCurve)
		r.Get("/concepts/{conceptID}/related", s.handleRelated)
		r.Get("/graph", s.handleGraph)
		r.Get("/search", s.handleSearch)
		r.Get("/summary", s.handleSummary)
		r.Get("/briefing", s.handleBriefing)
	})

	r.Handle("/metrics", promhttp.Handler())

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
