package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scrubbe-dev/incident-service/internal/api/http/handlers"
	"github.com/scrubbe-dev/incident-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Incidents         *handlers.IncidentsHandler
	AuthMiddleware    fiber.Handler
	IntegrationSecret string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	integrations := api.Group("/integrations", auth.RequireSharedSecret(cfg.IntegrationSecret))
	integrations.Post("/:businessId/incidents", cfg.Incidents.SubmitFromIntegration)

	incidents := api.Group("/incidents", cfg.AuthMiddleware)
	incidents.Get("/", cfg.Incidents.List)
	incidents.Get("/analytics", cfg.Incidents.Analytics)
	incidents.Get("/:ticketId", cfg.Incidents.Get)
	incidents.Get("/:ticketId/comments", cfg.Incidents.Comments)
	incidents.Get("/:ticketId/escalations", cfg.Incidents.Escalations)
	incidents.Get("/:ticketId/breaches", cfg.Incidents.Breaches)
	incidents.Get("/:ticketId/resolution", cfg.Incidents.Resolution)

	responder := auth.RequireRole(auth.ResponderRoles...)
	incidents.Post("/", responder, cfg.Incidents.Submit)
	incidents.Put("/:ticketId", responder, cfg.Incidents.Update)
	incidents.Post("/:ticketId/acknowledge", responder, cfg.Incidents.Acknowledge)
	incidents.Post("/:ticketId/resolve", responder, cfg.Incidents.Resolve)
	incidents.Post("/:ticketId/close", responder, cfg.Incidents.Close)
	incidents.Post("/:ticketId/comments", responder, cfg.Incidents.AddComment)
	incidents.Post("/:ticketId/escalate", responder, cfg.Incidents.Escalate)
}
