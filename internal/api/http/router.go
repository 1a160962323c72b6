package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// APIPrefix is the base path of every API route.
const APIPrefix = "/api/v1"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Admin          *handlers.AdminHandler
	DataEntries    *handlers.DataEntriesHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics

	// UploadsPath and UploadsDir serve stored files; empty disables it.
	UploadsPath string
	UploadsDir  string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}
	if cfg.UploadsPath != "" && cfg.UploadsDir != "" {
		app.Static(cfg.UploadsPath, cfg.UploadsDir, fiber.Static{Browse: false})
	}

	api := app.Group(APIPrefix)
	requireAuth := cfg.AuthMiddleware.Handle

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/current-user", requireAuth, cfg.Auth.CurrentUser)
	authGroup.Post("/logout", requireAuth, cfg.Auth.Logout)

	api.Get("/users", requireAuth, cfg.Users.List)

	tickets := api.Group("/tickets", requireAuth)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/my-tickets", cfg.Tickets.MyTickets)
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequireAdmin(), cfg.Tickets.DeleteTicket)
	tickets.Patch("/:id/status", auth.RequireStaff(), cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Get("/:id/messages", cfg.Tickets.ListMessages)
	tickets.Post("/:id/analyze", auth.RequireStaff(), cfg.Tickets.Analyze)
	tickets.Get("/:id/suggested-reply", auth.RequireStaff(), cfg.Tickets.SuggestedReply)

	admin := api.Group("/admin", requireAuth, auth.RequireAdmin())
	admin.Get("/dashboard", cfg.Admin.Dashboard)
	admin.Get("/tickets", cfg.Admin.ListTickets)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Patch("/users/:id/role", cfg.Admin.UpdateUserRole)
	admin.Patch("/tickets/:id/assign", cfg.Admin.AssignTicket)

	entries := api.Group("/data-entries")
	entries.Get("/", cfg.DataEntries.List)
	entries.Get("/:id", cfg.DataEntries.Get)
	entries.Post("/", requireAuth, cfg.DataEntries.Create)
	entries.Put("/:id", requireAuth, cfg.DataEntries.Update)
	entries.Delete("/:id", requireAuth, cfg.DataEntries.Delete)
}
