// Package httpapi exposes the meeting pipeline over HTTP using gin.
//
// Routes:
//
//	GET  /                          liveness banner
//	GET  /health                    collaborator health
//	POST /transcribe                multipart "file" upload, ingest and summarise
//	POST /api/meeting/transcribe    alias of /transcribe
//	POST /ask                       {"meetingId", "userQuery"} question
//	POST /api/meeting/ask           alias of /ask
//	GET  /metrics                   Prometheus metrics
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/meetsight/internal/adapters/driven/ai"
	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
	"github.com/custodia-labs/meetsight/internal/core/ports/driving"
	"github.com/custodia-labs/meetsight/internal/logger"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 15 * time.Second

// HealthChecker probes the collaborators behind the API.
type HealthChecker interface {
	CheckHealth(ctx context.Context) ai.HealthReport
}

// Config holds HTTP server configuration.
type Config struct {
	// Addr is the listen address (default: :8000).
	Addr string

	// CORSOrigins lists allowed browser origins. "*" allows any.
	CORSOrigins []string

	// MaxUploadBytes caps multipart uploads (default: 100 MiB).
	MaxUploadBytes int64

	// RequestTimeout bounds each pipeline call. Zero disables it.
	RequestTimeout time.Duration
}

// ConfigFromSettings converts server settings.
func ConfigFromSettings(s domain.ServerSettings) Config {
	return Config{
		Addr:           s.Addr,
		CORSOrigins:    s.CORSOrigins,
		MaxUploadBytes: int64(s.MaxUploadMB) << 20,
		RequestTimeout: s.RequestTimeout,
	}
}

// Server serves the meeting API.
type Server struct {
	cfg      Config
	meetings driving.MeetingService
	health   HealthChecker
	formats  driven.NormaliserRegistry
	metrics  *Metrics
	router   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithNormaliser converts uploaded transcript files (Markdown, Word,
// captions) to plain text before ingestion. Without it uploads are read
// as-is.
func WithNormaliser(r driven.NormaliserRegistry) Option {
	return func(s *Server) { s.formats = r }
}

// New creates a server. health may be nil, in which case /health only
// reports that the process is up.
func New(cfg Config, meetings driving.MeetingService, health HealthChecker, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 100 << 20
	}

	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = logger.Writer()
	gin.DefaultErrorWriter = logger.Writer()

	s := &Server{
		cfg:      cfg,
		meetings: meetings,
		health:   health,
		metrics:  NewMetrics("meetsight"),
		router:   gin.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(requestLogMiddleware())
	s.router.Use(corsMiddleware(s.cfg.CORSOrigins))
	s.router.Use(s.metrics.Middleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.root)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", s.metrics.Handler())

	s.router.POST("/transcribe", s.transcribe)
	s.router.POST("/ask", s.ask)

	meeting := s.router.Group("/api/meeting")
	meeting.POST("/transcribe", s.transcribe)
	meeting.POST("/ask", s.ask)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
