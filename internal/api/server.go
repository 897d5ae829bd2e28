// Package api exposes a db.Store over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/peopledb/internal/db"
)

const (
	// DefaultHTTPTimeout bounds each request, including streaming the result.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultPageLimit applies when a list request has no limit parameter.
	DefaultPageLimit = 100

	// MaxPageLimit caps the limit parameter.
	MaxPageLimit = 1000

	maxBodyBytes = 64 << 10
)

// Server routes HTTP requests to a store.
type Server struct {
	store  db.Store
	router *chi.Mux
}

// NewServer builds the router. The store stays owned by the caller.
func NewServer(store db.Store) *Server {
	s := &Server{
		store:  store,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(DefaultHTTPTimeout))
	s.router.Use(MaxBodySize(maxBodyBytes))
	s.router.Use(RequireJSONContentType)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/people", func(r chi.Router) {
		r.Get("/", s.handleListPeople)
		r.Post("/", s.handleCreatePerson)
		r.Get("/counts", s.handlePetCounts)
		r.Get("/{id}", s.handleGetPerson)
	})

	s.router.Route("/api/pets", func(r chi.Router) {
		r.Get("/", s.handleListPets)
		r.Post("/", s.handleCreatePet)
		r.Get("/{id}", s.handleGetPet)
		r.Patch("/{id}", s.handleUpdatePet)
		r.Delete("/{id}", s.handleDeletePet)
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// handleHealth reports the store's health. Stores without detailed health
// reporting are pinged instead.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if hc, ok := s.store.(db.HealthChecker); ok {
		info := hc.HealthCheck(r.Context())
		status := http.StatusOK
		if info.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, info)
		return
	}

	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
