// Package server provides the HTTP API for kiku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/internal/extract"
	"github.com/hyperjump/kiku/internal/rag"
	"github.com/hyperjump/kiku/internal/storage"
	"github.com/hyperjump/kiku/internal/summarize"
)

// Server is the HTTP server for the kiku API.
type Server struct {
	pipeline   *rag.Pipeline
	extractor  *extract.Extractor
	storage    storage.Storage
	summarizer *summarize.Summarizer
	config     *config.Config
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies. summarizer may
// be nil; the summary endpoint then responds 503.
func NewServer(
	pipeline *rag.Pipeline,
	extractor *extract.Extractor,
	st storage.Storage,
	summarizer *summarize.Summarizer,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline:   pipeline,
		extractor:  extractor,
		storage:    st,
		summarizer: summarizer,
		config:     cfg,
		logger:     logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/documents", s.handleCreateDocument)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Post("/api/v1/documents/{id}/context", s.handleContext)
	r.Post("/api/v1/documents/{id}/summary", s.handleSummary)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
