package web

import (
	"github.com/andresmejia3/faceguard/internal/web/handlers"
	"github.com/andresmejia3/faceguard/internal/web/middleware"
	"github.com/go-chi/chi/v5"
)

func (s *Server) setupRoutes() {
	// Health checks (no auth)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Get("/api/v1/ready", handlers.ReadyCheck(s.ready))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(s.config.APIKey))

		r.Route("/users/{userID}/face", func(r chi.Router) {
			r.Get("/", s.face.Status)
			r.Post("/", s.face.Enroll)
			r.Put("/", s.face.ReEnroll)
			r.Delete("/", s.face.Disable)
			r.Post("/authenticate", s.face.Authenticate)
			r.Get("/events", s.face.History)
		})
	})
}
