package routes

import (
	"github.com/asphalt-aid/backend/internal/config"
	"github.com/asphalt-aid/backend/internal/handlers"
	"github.com/asphalt-aid/backend/internal/middleware"
	"github.com/asphalt-aid/backend/internal/permissions"
	"github.com/asphalt-aid/backend/internal/repository"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Profile *handlers.ProfileHandler
	Reports *handlers.ReportHandler
	Admin   *handlers.AdminHandler
	Health  *handlers.HealthHandler
}

// Setup mounts the API. limiterStorage may be nil, in which case rate-limit
// counters stay in process memory.
func Setup(
	app *fiber.App,
	cfg *config.Config,
	h Handlers,
	users repository.UserRepository,
	perms *permissions.Permissions,
	limiterStorage fiber.Storage,
) {
	api := app.Group("/api")

	// General API rate limiter
	api.Use(middleware.RateLimit(cfg.RateLimitMax, limiterStorage))

	api.Get("/health", h.Health.Check)

	// Auth: public, stricter limit
	auth := api.Group("/auth")
	auth.Use(middleware.RateLimit(cfg.AuthRateLimit, limiterStorage))
	auth.Post("/signup", h.Auth.Signup)
	auth.Post("/signin", h.Auth.Signin)
	auth.Post("/refresh", h.Auth.Refresh)

	// Protected routes get the JWT middleware per route so public routes stay untouched.
	jwt := middleware.JWTProtected(cfg)
	api.Post("/auth/logout", jwt, h.Auth.Logout)

	api.Get("/profile", jwt, h.Profile.Get)
	api.Delete("/profile", jwt, h.Profile.Delete)
	api.Put("/profile/update", jwt, h.Profile.Update)
	api.Patch("/profile/update", jwt, h.Profile.Update)
	api.Post("/change-password", jwt, h.Profile.ChangePassword)

	api.Get("/reports", jwt, h.Reports.List)
	api.Post("/reports", jwt, h.Reports.Create)
	api.Get("/reports/:id", jwt, h.Reports.Get)
	api.Put("/reports/:id", jwt, h.Reports.Update)
	api.Patch("/reports/:id", jwt, h.Reports.Update)
	api.Delete("/reports/:id", jwt, h.Reports.Delete)
	api.Get("/reports/:id/image", jwt, h.Reports.Image)

	// Admin panel (JWT + RBAC admin)
	admin := api.Group("/admin", jwt, middleware.AdminRequired(users, perms, cfg))
	admin.Get("/reports", h.Admin.ListReports)
	admin.Get("/reports/:id", h.Admin.GetReport)
	admin.Put("/reports/:id/status", h.Admin.UpdateStatus)
	admin.Post("/reports/:id/analyze", h.Admin.Analyze)
	admin.Get("/jobs/:id", h.Admin.Job)
	admin.Get("/stats", h.Admin.Stats)
}
