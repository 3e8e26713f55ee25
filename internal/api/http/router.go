package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	SLA            *handlers.SLAHandler
	Pool           *handlers.PoolHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	AdminTokenHash string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)
	tenant := api.Group("/tenants/:tenant")

	tenant.Get("/tickets/:id/sla", auth.RequireScope(auth.ScopeSLARead), cfg.SLA.GetTicketSLA)
	tenant.Post("/tickets/:id/sla/apply", auth.RequireScope(auth.ScopeSLAWrite), cfg.SLA.ApplySLA)
	tenant.Post("/tickets/:id/first-response", auth.RequireScope(auth.ScopeSLAWrite), cfg.SLA.FirstResponse)
	tenant.Post("/sla/backfill", auth.RequireScope(auth.ScopeSLAWrite), cfg.SLA.Backfill)

	tenant.Post("/tickets/:id/pool/score", auth.RequireScope(auth.ScopePoolWrite), cfg.Pool.ScoreTicket)
	tenant.Post("/tickets/:id/pool/entered", auth.RequireScope(auth.ScopePoolWrite), cfg.Pool.TicketEnteredPool)
	tenant.Post("/pool/recalculate", auth.RequireScope(auth.ScopePoolWrite), cfg.Pool.Recalculate)

	admin := app.Group("/admin", auth.RequireAdminToken(cfg.AdminTokenHash))
	admin.Post("/sweep", cfg.Admin.TriggerSweep)
	admin.Get("/metrics", cfg.Admin.Metrics)
}
