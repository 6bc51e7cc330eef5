package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/core/ports/driving"
	"github.com/custodia-labs/brochurebot/internal/metrics"
	"github.com/custodia-labs/brochurebot/internal/runtime"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker is implemented by vector indexes
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	cfg        Config
	logger     *zap.Logger

	// Services
	authService      driving.AuthService
	uploadService    driving.UploadService
	chatService      driving.ChatService
	shareLinkService driving.ShareLinkService
	analyticsService driving.AnalyticsService
	tenantResolver   driving.TenantResolver
	runtime          *runtime.Services

	// Infrastructure
	metrics     *metrics.Metrics
	limiter     *RateLimiter
	db          Pinger        // PostgreSQL health check
	redisClient Pinger        // Redis health check (optional)
	index       HealthChecker // Vector index health check
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	// RateLimit is public chat requests per second per share token
	RateLimit float64
	RateBurst int
	// MaxUploadBytes bounds the multipart body of POST /upload
	MaxUploadBytes  int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		AllowedOrigins:  []string{"*"},
		RateLimit:       1,
		RateBurst:       5,
		MaxUploadBytes:  20 << 20,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    90 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Deps are the services and probes the server routes to
type Deps struct {
	Auth      driving.AuthService
	Uploads   driving.UploadService
	Chat      driving.ChatService
	ShareLink driving.ShareLinkService
	Analytics driving.AnalyticsService
	Tenants   driving.TenantResolver
	Runtime   *runtime.Services

	Metrics *metrics.Metrics // Optional
	DB      Pinger
	Redis   Pinger        // Optional
	Index   HealthChecker // Optional
	Logger  *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}

	s := &Server{
		router:           http.NewServeMux(),
		cfg:              cfg,
		logger:           logger,
		authService:      deps.Auth,
		uploadService:    deps.Uploads,
		chatService:      deps.Chat,
		shareLinkService: deps.ShareLink,
		analyticsService: deps.Analytics,
		tenantResolver:   deps.Tenants,
		runtime:          deps.Runtime,
		metrics:          deps.Metrics,
		limiter:          NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		db:               deps.DB,
		redisClient:      deps.Redis,
		index:            deps.Index,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = NewCORSMiddleware(s.cfg.AllowedOrigins).Handler(h)
	h = NewLoggingMiddleware(s.logger, s.metrics).Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	return h
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	authed := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", s.metrics.Handler())
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwagger)

	// Auth endpoints
	s.router.HandleFunc("POST /auth/login", s.handleLogin)
	s.router.Handle("POST /auth/logout", authed(s.handleLogout))
	s.router.Handle("GET /auth/me", authed(s.handleGetMe))

	// Document endpoints (operator session)
	s.router.Handle("POST /upload", authed(s.handleUpload))
	s.router.Handle("GET /admin/status", authed(s.handleStatus))

	// Share link and analytics (operator session)
	s.router.Handle("GET /admin/share-link", authed(s.handleShareLink))
	s.router.Handle("POST /admin/regenerate-link", authed(s.handleRegenerateLink))
	s.router.Handle("GET /admin/analytics", authed(s.handleAnalytics))
	s.router.Handle("GET /admin/diagnostics/embedding", authed(s.handleEmbeddingDiagnostics))

	// Chat accepts a share token in the body or an operator session
	s.router.HandleFunc("POST /chat", s.handleChat)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
