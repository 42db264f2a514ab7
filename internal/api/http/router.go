package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/platform-desk/internal/api/http/handlers"
	"github.com/spec-kit/platform-desk/internal/auth"
	"github.com/spec-kit/platform-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Platforms      *handlers.PlatformsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	authProtected.Get("/me", cfg.Users.Me)
	authProtected.Post("/password/change", cfg.Users.ChangePassword)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	users.Post("/:id/promote", cfg.Users.PromoteOperator)

	platforms := app.Group("/platforms", cfg.AuthMiddleware.Handle, auth.RequireRole())
	platforms.Get("", cfg.Platforms.ListPlatforms)
	platforms.Get("/:id", cfg.Platforms.GetPlatform)
	platforms.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Platforms.CreatePlatform)
	platforms.Get("/:id/operators", auth.RequireStaff(), cfg.Platforms.ListOperators)
	platforms.Post("/:id/preferences", auth.RequireStaff(), cfg.Platforms.RegisterPreference)
	platforms.Delete("/:id/preferences", auth.RequireStaff(), cfg.Platforms.RemovePreference)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireRole())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/reply", cfg.Tickets.Reply)
	tickets.Post("/:id/close", auth.RequireStaff(), cfg.Tickets.CloseTicket)
	tickets.Post("/:id/assign", auth.RequireStaff(), cfg.Tickets.AssignTicket)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireRole())
	notifications.Get("", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}
