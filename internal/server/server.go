// Package server provides the HTTP API for the knowledge core.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nzila/unionkb/internal/answer"
	"github.com/nzila/unionkb/internal/config"
	"github.com/nzila/unionkb/internal/index"
	"github.com/nzila/unionkb/internal/ingest"
	"github.com/nzila/unionkb/internal/ratelimit"
	"github.com/nzila/unionkb/internal/search"
	"github.com/nzila/unionkb/internal/storage"
	"github.com/nzila/unionkb/internal/watcher"
)

// Server is the HTTP server for the knowledge core API.
type Server struct {
	ingestor *ingest.Ingestor
	indexer  *index.Indexer
	engine   *search.Engine
	pipeline *answer.Pipeline
	limiter  *ratelimit.Limiter
	storage  storage.Storage
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server

	// watch endpoints are optional; nil when the watcher is disabled.
	watch        *watcher.Watcher
	configPath   string
	configSaveMu sync.Mutex
}

// ServerOption configures optional server collaborators.
type ServerOption func(*Server)

// WithWatcher enables the watch directory management endpoints. configPath,
// when non-empty, persists directory changes back to the config file.
func WithWatcher(w *watcher.Watcher, configPath string) ServerOption {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ingestor *ingest.Ingestor,
	indexer *index.Indexer,
	engine *search.Engine,
	pipeline *answer.Pipeline,
	limiter *ratelimit.Limiter,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	s := &Server{
		ingestor: ingestor,
		indexer:  indexer,
		engine:   engine,
		pipeline: pipeline,
		limiter:  limiter,
		storage:  store,
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ingest", s.handleIngest)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/ask", s.handleAsk)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/usage/{tenant}", s.handleGetUsage)
	r.Post("/api/v1/usage/{tenant}/reset", s.handleResetUsage)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
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
