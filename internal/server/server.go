package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sundayezeilo/linkmetrics/internal/analytics"
	"github.com/sundayezeilo/linkmetrics/internal/clicks"
	"github.com/sundayezeilo/linkmetrics/internal/config"
	"github.com/sundayezeilo/linkmetrics/internal/httpx"
	"github.com/sundayezeilo/linkmetrics/internal/links"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers are the route targets the server mounts.
type Handlers struct {
	Links     *links.Handler
	Redirect  *clicks.RedirectHandler
	Analytics *analytics.Handler
	// Database is checked by the health endpoint when set.
	Database Pinger
}

// Server represents the HTTP server with all dependencies.
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	handlers Handlers
	server   *http.Server
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *slog.Logger, handlers Handlers) *Server {
	return &Server{
		config:   cfg,
		logger:   logger,
		handlers: handlers,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// Start serves until ctx is cancelled or a shutdown signal arrives.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

// setupRoutes configures all HTTP routes. Literal /api and /x prefixes are
// more specific than the catch-all redirect pattern, so codes never shadow
// them.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /x/health", s.healthCheckHandler)

	if h := s.handlers.Links; h != nil {
		mux.HandleFunc("POST /api/links", h.CreateLink)
		mux.HandleFunc("GET /api/links", h.ListLinks)
		mux.HandleFunc("GET /api/links/popular", h.PopularLinks)
		mux.HandleFunc("GET /api/links/{id}", h.GetLink)
		mux.HandleFunc("PATCH /api/links/{id}", h.UpdateLink)
		mux.HandleFunc("DELETE /api/links/{id}", h.DeleteLink)
		mux.HandleFunc("POST /api/admin/owners/{id}/reconcile", h.ReconcileOwner)
	}

	if h := s.handlers.Analytics; h != nil {
		mux.HandleFunc("GET /api/analytics/links/{id}", h.LinkAnalytics)
		mux.HandleFunc("GET /api/analytics/dashboard", h.Dashboard)
		mux.HandleFunc("GET /api/analytics/platform", h.Platform)
		mux.HandleFunc("GET /api/analytics/realtime", h.RealTime)
		mux.HandleFunc("POST /api/analytics/report", h.Report)
		mux.HandleFunc("POST /api/analytics/summary", h.Summary)
		mux.HandleFunc("POST /api/admin/cleanup", h.Cleanup)
	}

	if h := s.handlers.Redirect; h != nil {
		mux.HandleFunc("GET /{code}", h.Redirect)
	}

	return mux
}

// applyMiddleware wraps the handler with middleware in the correct order.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Load validated the list already; a hand-built config with a bad entry
	// trusts nobody.
	trusted, _ := s.config.Server.TrustedProxyPrefixes()
	return httpx.Chain(
		httpx.Recovery(s.logger), // outermost: catch panics
		httpx.RequestID,
		httpx.RealIP(trusted),
		httpx.Logger(s.logger),
		httpx.CORS(nil),
		httpx.Identify, // innermost: handlers read the caller from context
	)(handler)
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	database := "skipped"
	if s.handlers.Database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		database = "ok"
		if err := s.handlers.Database.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed", "error", err.Error())
			status, code, database = "degraded", http.StatusServiceUnavailable, "unreachable"
		}
	}

	httpx.WriteJSON(w, code, map[string]string{
		"status":   status,
		"database": database,
		"service":  s.config.Observability.ServiceName,
		"version":  s.config.Observability.ServiceVersion,
	})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
