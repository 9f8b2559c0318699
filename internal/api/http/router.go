package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/rightsplace/rightsplace/internal/api/http/handlers"
	"github.com/rightsplace/rightsplace/internal/auth"
	"github.com/rightsplace/rightsplace/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Reports        *handlers.ReportsHandler
	Dashboard      *handlers.DashboardHandler
	Partners       *handlers.PartnersHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Limiter        *IPRateLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	app.Post("/reports", cfg.AuthMiddleware.Optional, AnonymousRateLimit(cfg.Limiter), cfg.Reports.Submit)

	// Guards sit on the routes, not on a "/me" group, so "/metrics" is not caught by the prefix.
	requireProfile := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireProfileRole()}
	app.Get("/me/reports", append(requireProfile, cfg.Dashboard.MyReports)...)
	app.Get("/me/cases", append(requireProfile, cfg.Dashboard.MyCases)...)

	app.Get("/cases/assigned", cfg.AuthMiddleware.Handle, cfg.Dashboard.AssignedCases)
	app.Get("/partners/verified", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Partners.ListVerified)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/reports", cfg.Admin.ListReports)
	admin.Get("/reports/:id", cfg.Admin.GetReport)
	admin.Delete("/reports/:id", cfg.Admin.DeleteReport)
	admin.Get("/reports/:id/history", cfg.Admin.History)
	admin.Post("/reports/:id/evidence", cfg.Admin.AttachEvidence)
	admin.Post("/partners/:id/verify", cfg.Admin.VerifyPartner)
	admin.Post("/cases", cfg.Admin.CreateCase)
	admin.Get("/cases/:id", cfg.Admin.GetCase)
	admin.Patch("/cases/:id", cfg.Admin.UpdateCase)
	admin.Post("/cases/:id/resolve", cfg.Admin.ResolveCase)
}
