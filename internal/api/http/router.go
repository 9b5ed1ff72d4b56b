package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsguardian/backend/internal/api/http/handlers"
	"github.com/opsguardian/backend/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Read endpoints are open; mutation
// endpoints go through the agent auth middleware (a no-op when auth is not
// configured).
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/agent/token", cfg.Auth.AgentToken)

	tickets := app.Group("/tickets")
	tickets.Get("/", cfg.Tickets.SearchTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/", cfg.AuthMiddleware.Handle, cfg.Tickets.CreateTicket)
	tickets.Put("/:id", cfg.AuthMiddleware.Handle, cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/suggestions", cfg.AuthMiddleware.Handle, cfg.Tickets.AddSuggestions)
	tickets.Post("/:id/assign", cfg.AuthMiddleware.Handle, cfg.Tickets.AssignTicket)
}
