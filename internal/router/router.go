package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/together-agent-api/internal/config"
	"github.com/noah-isme/together-agent-api/internal/handler"
	"github.com/noah-isme/together-agent-api/internal/middleware"
	"github.com/noah-isme/together-agent-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ActivityHandler    *handler.ActivityHandler
	DecisionHandler    *handler.DecisionHandler
	ActionHandler      *handler.ActionHandler
	SuggestionHandler  *handler.SuggestionHandler
	AnalyzeHandler     *handler.AnalyzeHandler
	MaintenanceHandler *handler.MaintenanceHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	agent := app.Group("/api/v1/agent", jwtMiddleware, middleware.RateLimit("agent", 120, time.Minute))
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(agent)
	}
	if deps.DecisionHandler != nil {
		deps.DecisionHandler.Register(agent)
	}
	if deps.ActionHandler != nil {
		deps.ActionHandler.Register(agent)
	}
	if deps.SuggestionHandler != nil {
		deps.SuggestionHandler.Register(agent)
	}
	if deps.AnalyzeHandler != nil {
		deps.AnalyzeHandler.Register(agent)
	}

	// Internal maintenance surface; expected to be network-restricted.
	if deps.MaintenanceHandler != nil {
		internal := app.Group("/internal")
		deps.MaintenanceHandler.Register(internal)
	}
}
