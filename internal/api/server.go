// Package api provides the HTTP API server and handlers for PaperBase.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/paperbaseapp/paperbase-server/internal/config"
	"github.com/paperbaseapp/paperbase-server/internal/http/response"
	"github.com/paperbaseapp/paperbase-server/internal/ingest"
	"github.com/paperbaseapp/paperbase-server/internal/search"
	"github.com/paperbaseapp/paperbase-server/internal/service"
	"github.com/paperbaseapp/paperbase-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *store.Store
	papers     *service.PaperService
	index      *search.Index
	indexer    *search.Indexer
	downloader *ingest.Downloader
	pipeline   *ingest.Pipeline
	strip      string
	allowMeta  bool
	router     *chi.Mux
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(store *store.Store, papers *service.PaperService, index *search.Index, indexer *search.Indexer, downloader *ingest.Downloader, pipeline *ingest.Pipeline, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		store:      store,
		papers:     papers,
		index:      index,
		indexer:    indexer,
		downloader: downloader,
		pipeline:   pipeline,
		strip:      cfg.Library.StripString,
		allowMeta:  cfg.Ingest.AllowPDFMetadata,
		router:     chi.NewRouter(),
		logger:     logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack. The API is served to a
// local desktop frontend, so CORS is wide open.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/papers", func(r chi.Router) {
			r.Post("/", s.handleCreatePaper)
			r.Post("/from-url", s.handleCreatePaperFromURL)
			r.Get("/", s.handleListPapers)
			r.Post("/batch-delete", s.handleDeletePapers)
			r.Get("/{id}", s.handleGetPaper)
			r.Put("/{id}", s.handleUpdatePaper)
			r.Delete("/{id}", s.handleDeletePaper)
		})

		r.Route("/categorizers/{kind}", func(r chi.Router) {
			r.Get("/", s.handleListCategorizers)
			r.Get("/{id}/papers", s.handleCategorizerPapers)
		})

		r.Route("/feeds", func(r chi.Router) {
			r.Post("/", s.handleCreateFeed)
			r.Patch("/{id}", s.handleUpdateFeed)
			r.Delete("/{id}", s.handleDeleteFeed)
		})

		r.Get("/search", s.handleSearch)
		r.Post("/search/reindex", s.handleReindex)

		r.Post("/migrate", s.handleMigrate)
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
