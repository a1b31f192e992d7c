package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Tickets        *handlers.TicketsHandler
	Assignments    *handlers.AssignmentsHandler
	Notifications  *handlers.NotificationsHandler
	Technicians    *handlers.TechniciansHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Role checks for lifecycle routes happen
// in the coordinator; routes only require an authenticated caller.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Get)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	tickets := protected.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/assign", cfg.Tickets.Assign)
	tickets.Post("/:id/cancel", cfg.Tickets.Cancel)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)

	assignments := protected.Group("/assignments")
	assignments.Get("/:id", cfg.Assignments.Get)
	assignments.Put("/:id/accept", cfg.Assignments.Accept)
	assignments.Put("/:id/start", cfg.Assignments.Start)
	assignments.Post("/:id/evidence", cfg.Assignments.SubmitEvidence)
	assignments.Post("/:id/verify", cfg.Assignments.Verify)
	assignments.Post("/:id/repair-logs", cfg.Assignments.AddRepairLog)
	assignments.Get("/:id/repair-logs", cfg.Assignments.ListRepairLogs)

	notifications := protected.Group("/notifications")
	notifications.Get("/", cfg.Notifications.List)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)

	protected.Delete("/technicians/:id", cfg.Technicians.Decommission)
}
