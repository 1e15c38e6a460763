// Package http exposes the document-chat core over a JSON HTTP API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
	"github.com/archivist-labs/ragcore/internal/core/ports/driving"
	"github.com/archivist-labs/ragcore/internal/metrics"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	maxUploadBytes int64
	retrieval      RetrievalDefaults

	// Services
	authService   driving.AuthService
	ingestService driving.IngestService
	ragService    driving.RAGService
	toolService   driving.ToolService

	// Infrastructure
	taskQueue   driven.TaskQueue
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	MaxUploadBytes int64
	Retrieval      RetrievalDefaults
}

// RetrievalDefaults are the query tuning values applied when a request
// omits them.
type RetrievalDefaults struct {
	TopK           int
	ScoreThreshold float64
	IncludeSources bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	base := domain.DefaultRAGQuery("")
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		MaxUploadBytes: 10 * 1024 * 1024,
		Retrieval: RetrievalDefaults{
			TopK:           base.TopK,
			ScoreThreshold: base.ScoreThreshold,
			IncludeSources: base.IncludeSources,
		},
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	ingestService driving.IngestService,
	ragService driving.RAGService,
	toolService driving.ToolService,
	taskQueue driven.TaskQueue,
	db Pinger,
	redisClient Pinger, // can be nil
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval = DefaultConfig().Retrieval
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		maxUploadBytes: cfg.MaxUploadBytes,
		retrieval:      cfg.Retrieval,
		authService:    authService,
		ingestService:  ingestService,
		ragService:     ragService,
		toolService:    toolService,
		taskQueue:      taskQueue,
		db:             db,
		redisClient:    redisClient,
		metrics:        m,
		logger:         logger,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.buildHandler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // chat completions can be slow
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// buildHandler configures all routes and wraps them in the shared middleware
func (s *Server) buildHandler() http.Handler {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics.Handler())
	}

	// Auth endpoint (public)
	s.router.HandleFunc("POST /api/v1/auth/token", s.handleToken)

	// Document endpoints
	s.router.Handle("POST /api/v1/documents",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleUploadDocuments)))
	s.router.Handle("POST /api/v1/documents/enqueue",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleEnqueueDocument)))
	s.router.Handle("GET /api/v1/documents",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListDocuments)))
	s.router.Handle("DELETE /api/v1/documents",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteByFilename)))
	s.router.Handle("DELETE /api/v1/documents/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteDocument)))

	// Query and chat endpoints
	s.router.Handle("POST /api/v1/query",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleQuery)))
	s.router.Handle("POST /api/v1/chat",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleChat)))

	// Tool listing
	s.router.Handle("GET /api/v1/tools",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListTools)))

	var handler http.Handler = s.router
	handler = NewMetricsMiddleware(s.metrics).Handler(handler)
	handler = NewLoggingMiddleware(s.logger).Handler(handler)
	handler = NewRecoveryMiddleware(s.logger).Handler(handler)
	return handler
}

// Addr returns the address the server listens on
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
