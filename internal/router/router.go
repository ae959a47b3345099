package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sensacare/vitals/internal/config"
	"github.com/sensacare/vitals/internal/handlers"
	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/middleware"
	"github.com/sensacare/vitals/internal/services"
)

// Services are the dependencies of the HTTP handlers.
type Services struct {
	Readings  *services.ReadingService
	Profiles  *services.ProfileService
	Analytics *services.AnalyticsService
	// Storage is probed by /health; optional.
	Storage handlers.Pinger
}

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, svc Services, cfg config.Config, version string) *handlers.Handler {
	h := handlers.New(logger, svc.Readings, svc.Profiles, svc.Analytics, handlers.Options{
		Lookback: cfg.Analytics.DefaultLookback,
		Version:  version,
		Storage:  svc.Storage,
	})

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, logging.DefaultMiddlewareConfig()))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled)
	v1 := app.Group("/v1", authMiddleware)

	v1.Get("/zones", h.Zones)

	users := v1.Group("/users/:user_id")

	users.Post("/readings", h.WriteReadings)
	users.Get("/readings", h.GetReadings)
	users.Delete("/readings", h.DeleteReadings)

	users.Get("/profile", h.GetProfile)
	users.Put("/profile", h.PutProfile)

	users.Get("/zones", h.UserZones)
	users.Get("/stats", h.Stats)
	users.Get("/hrv", h.HRV)
	users.Get("/trends", h.Trends)
	users.Get("/abnormalities", h.Abnormalities)
	users.Get("/outliers", h.Outliers)
	users.Get("/report", h.Report)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, svc Services, cfg config.Config, version string) *fiber.App {
	fcfg := fiber.Config{
		AppName:               "Vitals API",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
	}
	if cfg.Server.BodyLimit > 0 {
		fcfg.BodyLimit = cfg.Server.BodyLimit
	}
	app := fiber.New(fcfg)

	Setup(app, logger, svc, cfg, version)

	return app
}
