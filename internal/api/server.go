// Package api exposes segmentation, rendering and Q/A generation over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docseg/internal/config"
	"github.com/dgallion1/docseg/internal/pathstore"
	"github.com/dgallion1/docseg/internal/pipeline"
	"github.com/dgallion1/docseg/internal/qagen"
	"github.com/dgallion1/docseg/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docseg.
type Server struct {
	router chi.Router
	store  *store.Store
	// orchestrator is nil when Q/A generation is not configured.
	orchestrator *pipeline.Orchestrator
	stats        *qagen.LLMStats
	pathstore    *pathstore.Client
	log          *slog.Logger
	cfg          config.Config
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithPathstore makes document deletes also remove the pathstore mirror.
func WithPathstore(c *pathstore.Client) Option {
	return func(s *Server) { s.pathstore = c }
}

// NewServer creates and configures the HTTP server. orch and stats may be nil.
func NewServer(st *store.Store, orch *pipeline.Orchestrator, stats *qagen.LLMStats, log *slog.Logger, cfg config.Config, opts ...Option) *Server {
	s := &Server{
		store:        st,
		orchestrator: orch,
		stats:        stats,
		log:          log,
		cfg:          cfg,
	}
	for _, opt := range opts {
		opt(s)
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

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey))

		r.Post("/api/segment", s.handleSegment)
		r.Post("/api/render", s.handleRender)

		r.Post("/api/qa", s.handleQA)
		r.Get("/api/qa/{jobID}/status", s.handleQAStatus)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}/segments", s.handleDocumentSegments)
		r.Get("/api/documents/{docID}/qa", s.handleDocumentQA)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"qa_enabled": s.orchestrator != nil,
	})
}
