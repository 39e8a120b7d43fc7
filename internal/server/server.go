// Package server sets up the HTTP server, router, and all route definitions.
//
// It is the composition root:
//
//	config.Config → sqlite.DB ─┐
//	              → TokenService ├→ AuthService → AuthHandler
//	              → DiscordProvider ┘
//
// Handlers never touch the database and the service never touches HTTP.
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
	"github.com/go-chi/cors"

	"github.com/sakif/discord-relay/internal/auth"
	"github.com/sakif/discord-relay/internal/config"
	"github.com/sakif/discord-relay/internal/handler"
	"github.com/sakif/discord-relay/internal/middleware"
	sqliteRepo "github.com/sakif/discord-relay/internal/repository/sqlite"
	"github.com/sakif/discord-relay/internal/service"
)

// Provider is everything the server needs from the identity provider.
type Provider interface {
	service.IdentityProvider
	handler.ConsentURLBuilder
}

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it on shutdown.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	provider Provider
	tokenOps []auth.Option
}

// Option customises a Server before its routes are built.
type Option func(*Server)

// WithProvider replaces the Discord client, e.g. with a fake in tests.
func WithProvider(p Provider) Option {
	return func(s *Server) {
		s.provider = p
	}
}

// WithTokenOptions passes options through to the access token service.
func WithTokenOptions(opts ...auth.Option) Option {
	return func(s *Server) {
		s.tokenOps = append(s.tokenOps, opts...)
	}
}

// New opens the database and wires every layer together.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.provider == nil {
		s.provider = auth.NewDiscordProvider(auth.ProviderConfig{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			AuthURL:      cfg.DiscordAuthURL,
			TokenURL:     cfg.DiscordTokenURL,
			ProfileURL:   cfg.DiscordProfileURL,
			Timeout:      cfg.ProviderTimeout,
		})
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTES:
//
//	GET  /auth/login    → redirect to the Discord consent page
//	GET  /auth          → OAuth callback, sets both cookies
//	POST /auth/refresh  → new access cookie from the refresh cookie
//	GET  /users/me      → current user (RequireAuth)
//	GET  /healthz       → database ping
//
// Middleware order: RequestID, RealIP, Logger, Recoverer, CORS. The logger
// sits outside Recoverer so recovered panics are logged with their 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.tokenOps...)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	authService := service.NewAuthService(s.db, s.provider, tokens, s.logger,
		service.WithRefreshRotation(s.config.RotateRefreshTokens),
	)
	authHandler := handler.NewAuthHandler(authService, s.provider, handler.AuthConfig{
		FrontendURL:   s.config.FrontendURL,
		SecureCookies: s.config.SecureCookies,
	}, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Get("/auth", authHandler.HandleCallback)
	s.router.Get("/auth/login", authHandler.HandleLogin)
	s.router.Post("/auth/refresh", authHandler.HandleRefresh)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authService, handler.WriteError))
		r.Get("/users/me", authHandler.HandleMe)
	})

	return nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown; tests that
// only use Handler call it directly.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves HTTP until SIGINT/SIGTERM, then drains in-flight requests
// for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("frontend", s.config.FrontendURL),
			slog.Bool("rotateRefresh", s.config.RotateRefreshTokens),
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
