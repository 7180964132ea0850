// Package api exposes the structure index, search, validation and mutation
// engines over HTTP. Read endpoints are snapshot queries; write endpoints go
// through the mutation engine's locking contract.
package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docstruct/internal/config"
	"github.com/dgallion1/docstruct/internal/index"
	"github.com/dgallion1/docstruct/internal/mutate"
	"github.com/dgallion1/docstruct/internal/search"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docstruct.
type Server struct {
	router chi.Router
	index  *index.Index
	search *search.Engine
	mutate *mutate.Engine
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(ix *index.Index, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		index:  ix,
		search: search.NewEngine(ix),
		mutate: mutate.NewEngine(ix, log),
		log:    log,
		cfg:    cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		// An empty key disables authentication.
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/api/v1/structure", s.handleStructure)
		r.Get("/api/v1/section", s.handleGetSection)
		r.Get("/api/v1/levels/{level}", s.handleSectionsAtLevel)
		r.Get("/api/v1/elements", s.handleElements)
		r.Get("/api/v1/search", s.handleSearch)
		r.Get("/api/v1/metadata", s.handleMetadata)
		r.Get("/api/v1/validate", s.handleValidate)

		r.Put("/api/v1/section", s.handleUpdateSection)
		r.Post("/api/v1/section/insert", s.handleInsertContent)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  s.index.Stats(),
	})
}
