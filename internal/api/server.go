package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docfill.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	log          *slog.Logger
	cfg          config.Config
	index        []byte
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) (*Server, error) {
	index, err := renderIndex()
	if err != nil {
		return nil, err
	}
	s := &Server{
		orchestrator: orch,
		log:          log,
		cfg:          cfg,
		index:        index,
	}
	s.setupRoutes()
	return s, nil
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
	r.Get("/", s.handleIndex)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/fill", s.handleFill)
		r.Get("/api/fill/{jobID}/status", s.handleFillStatus)
		r.Get("/api/fill/{jobID}/results", s.handleFillResults)
		r.Get("/api/fill/{jobID}/download", s.handleDownload)
		r.Delete("/api/fill/{jobID}", s.handleDeleteJob)

		r.Post("/api/templates/inspect", s.handleInspect)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) converterAvailable() bool {
	conv := s.orchestrator.Converter()
	return conv != nil && conv.Available()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"pdf_converter": s.converterAvailable(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
