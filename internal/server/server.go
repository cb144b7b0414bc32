// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/storage"
)

// ============================================================================
// CONSTANTS
// ============================================================================

// DefaultShutdownTimeout bounds graceful shutdown when the config leaves it
// unset.
const DefaultShutdownTimeout = 10 * time.Second

// ============================================================================
// SERVER
// ============================================================================

// Options configures a Server.
type Options struct {
	Addr              string
	ShutdownTimeout   time.Duration
	RequestsPerMinute int
	Version           string
}

// OptionsFromConfig converts the [server] config section.
func OptionsFromConfig(cfg config.ServerConfig, version string) Options {
	return Options{
		Addr:              cfg.Addr,
		ShutdownTimeout:   time.Duration(cfg.ShutdownTimeoutSecs) * time.Second,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Version:           version,
	}
}

// Server is the JSON API over a user's conversation history.
type Server struct {
	opts    Options
	store   storage.Backend
	logger  *zap.Logger
	echo    *echo.Echo
	started time.Time
	now     func() time.Time
}

// New creates a Server with all routes registered.
func New(opts Options, store storage.Backend, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		opts:    opts,
		store:   store,
		logger:  logger,
		echo:    e,
		started: time.Now(),
		now:     time.Now,
	}
	e.HTTPErrorHandler = s.handleError
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	e := s.echo
	e.Use(RecoveryMiddleware(s.logger))
	e.Use(SecurityHeadersMiddleware())
	e.Use(LoggingMiddleware(s.logger))

	e.GET("/health", s.handleHealth)

	api := e.Group("/api/v1", UserMiddleware())
	if s.opts.RequestsPerMinute > 0 {
		api.Use(RateLimitMiddleware(s.opts.RequestsPerMinute))
	}

	api.GET("/conversations", s.handleListConversations)
	api.GET("/conversations.csv", s.handleConversationsCSV)
	api.GET("/conversations/:id/messages", s.handleListMessages)
	api.GET("/conversations/:id/export", s.handleExport)
	api.PATCH("/conversations/:id", s.handleUpdateConversation)
	api.DELETE("/conversations/:id", s.handleDeleteConversation)
	api.POST("/conversations/bulk-delete", s.handleBulkDelete)
	api.POST("/annotate", s.handleAnnotate)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", s.opts.Addr), zap.String("version", s.opts.Version))
		errCh <- s.echo.Start(s.opts.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// ============================================================================
// ERRORS
// ============================================================================

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one error.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// handleError renders errors as ErrorBody and maps storage errors to
// status codes.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		message = fmt.Sprint(he.Message)
	case errors.Is(err, storage.ErrNotFound):
		code, message = http.StatusNotFound, "conversation not found"
	case errors.Is(err, storage.ErrUnauthenticated):
		code, message = http.StatusUnauthorized, "missing user"
	default:
		s.logger.Error("Request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
	}

	body := ErrorBody{Error: ErrorDetail{Message: message, Code: code}}
	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, body)
	}
	if werr != nil {
		s.logger.Warn("Failed to write error response", zap.Error(werr))
	}
}
