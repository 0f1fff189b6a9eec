// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It connects handlers, middleware and
// routes, and decides:
//   - Which URL patterns map to which handler functions
//   - Which routes need a session and which need the admin role
//   - How the server starts and stops gracefully
//
// Services are built in cmd/server and handed in through Dependencies, so
// tests can assemble a Server around a temp database and fake launchers.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/botpanel/internal/auth"
	"github.com/sakif/botpanel/internal/handler"
	"github.com/sakif/botpanel/internal/metrics"
	"github.com/sakif/botpanel/internal/middleware"
	"github.com/sakif/botpanel/internal/service"
)

// writeTimeout covers validation sweeps, which call Discord once per account.
const writeTimeout = 2 * time.Minute

// Config holds server configuration.
type Config struct {
	Port          int
	SecureCookies bool
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the already-constructed services the routes call into.
type Dependencies struct {
	DB       Pinger
	Auth     *service.AuthService
	Accounts *service.AccountService
	Admin    *service.AdminService
	Stats    *service.StatsService
	// OAuth is nil when Discord login is not configured.
	OAuth handler.OAuthProvider
}

// Server represents the HTTP server and its routes.
type Server struct {
	router *chi.Mux
	config Config
	deps   Dependencies
	logger *slog.Logger
}

// New creates a Server with every route registered.
func New(cfg Config, deps Dependencies, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /auth/discord/login           → redirect to Discord
// GET    /auth/discord/callback        → finish login, set session cookie
// POST   /api/auth/logout              → end session
// GET    /api/stats                    → public counters
// GET    /api/user                     → current user            [auth]
// /api/accounts/...                     → account lifecycle       [auth]
// /api/admin/...                        → admin console           [auth + admin]
// GET    /healthz, /metrics            → probes
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: unique id per request
//  2. RealIP: client IP from proxy headers, recorded in the activity log
//  3. Recoverer: panics become 500s
//  4. Logger and metrics: see the final status of every request
func (s *Server) setupRoutes() {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.Middleware)

	// === Probes ===
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	authHandler := handler.NewAuthHandler(s.deps.OAuth, s.deps.Auth, s.config.SecureCookies, s.logger)
	accountHandler := handler.NewAccountHandler(s.deps.Accounts, s.logger)
	adminHandler := handler.NewAdminHandler(s.deps.Admin, s.logger)
	statsHandler := handler.NewStatsHandler(s.deps.Stats, s.logger)

	// === OAuth Routes ===
	s.router.Get("/auth/discord/login", authHandler.HandleLogin)
	s.router.Get("/auth/discord/callback", authHandler.HandleCallback)

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Get("/stats", statsHandler.HandleStats)

		// Everything below needs a live session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.deps.Auth, s.logger))

			r.Get("/user", authHandler.HandleMe)

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", accountHandler.HandleList)
				r.Post("/", accountHandler.HandleCreate)
				r.Post("/validate", accountHandler.HandleValidateAll)
				r.Get("/{id}", accountHandler.HandleGet)
				r.Delete("/{id}", accountHandler.HandleDelete)
				r.Post("/{id}/start", accountHandler.HandleStart)
				r.Post("/{id}/stop", accountHandler.HandleStop)
				r.Post("/{id}/validate", accountHandler.HandleValidate)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Get("/users", adminHandler.HandleListUsers)
				r.Post("/users/{id}/auth", adminHandler.HandleAuthorizeUser)
				r.Delete("/users/{id}", adminHandler.HandleDeleteUser)
				r.Get("/accounts", adminHandler.HandleListAccounts)
				r.Post("/accounts/validate", adminHandler.HandleValidateAll)
				r.Post("/host-manual", adminHandler.HandleHostManual)
				r.Get("/logs", adminHandler.HandleListActivity)
			})
		})
	})
}

// handleHealth answers 200 while the database is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.deps.DB.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}` + "\n"))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//
// Closing the database and stopping the scheduler is left to the caller,
// which owns them.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Bool("discordLogin", s.deps.OAuth != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
