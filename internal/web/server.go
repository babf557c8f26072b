package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/andresmejia3/faceguard/internal/config"
	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/andresmejia3/faceguard/internal/web/handlers"
	"github.com/andresmejia3/faceguard/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Server represents the web server
type Server struct {
	config     config.ServerConfig
	router     *chi.Mux
	httpServer *http.Server
	face       *handlers.FaceHandler
	ready      handlers.ReadyFunc
}

// NewServer creates a new web server. ready may be nil.
func NewServer(cfg config.ServerConfig, svc handlers.FaceService, ready handlers.ReadyFunc) *Server {
	r := chi.NewRouter()

	s := &Server{
		config: cfg,
		router: r,
		face:   handlers.NewFaceHandler(svc),
		ready:  ready,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logger.Info("starting web server", logger.LoggerOptions{Key: "addr", Data: s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("shutting down web server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
