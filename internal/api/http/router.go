package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops/internal/api/http/handlers"
	"github.com/spec-kit/hubops/internal/auth"
	"github.com/spec-kit/hubops/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Recurring      *handlers.RecurringHandler
	Scheduler      *handlers.SchedulerHandler
	Stats          *handlers.StatsHandler
	Directory      *handlers.DirectoryHandler
	Uploads        *handlers.UploadsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/auth/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	protected.Get("/departments", cfg.Directory.ListDepartments)
	protected.Get("/departments/:id/staff",
		auth.RequireRole(domain.RoleGM, domain.RoleDeptHead), cfg.Directory.ListStaff)

	protected.Post("/uploads", cfg.Uploads.Upload)

	tickets := protected.Group("/tickets")
	tickets.Post("", auth.RequireRole(domain.RoleTenant), cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/action", cfg.Tickets.ApplyAction)
	tickets.Post("/:id/feedback", auth.RequireRole(domain.RoleTenant), cfg.Tickets.Feedback)

	recurring := protected.Group("/recurring-tasks", auth.RequireRole(domain.RoleGM))
	recurring.Get("", cfg.Recurring.List)
	recurring.Post("", cfg.Recurring.Create)
	recurring.Put("/:id", cfg.Recurring.Update)
	recurring.Delete("/:id", cfg.Recurring.Delete)

	protected.Post("/scheduler/check", auth.RequireRole(domain.RoleGM), cfg.Scheduler.Run)
	protected.Get("/stats/dashboard", auth.RequireRole(domain.RoleGM), cfg.Stats.Dashboard)
}
