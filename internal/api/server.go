package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/serodriguez/tocbuilder/internal/config"
	"github.com/serodriguez/tocbuilder/internal/pipeline"
	"github.com/serodriguez/tocbuilder/internal/vision"
)

// Server is the HTTP API server for tocbuilder.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	vision       *vision.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, vc *vision.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		vision:       vc,
		log:          log,
		cfg:          cfg,
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
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/v1/toc/extract", s.handleExtract)
		r.Post("/api/v1/toc/extract-from-url", s.handleExtractFromURL)
		r.Post("/api/v1/toc/jobs", s.handleSubmitJob)
		r.Get("/api/v1/toc/jobs/{ticketID}", s.handleJobStatus)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}
