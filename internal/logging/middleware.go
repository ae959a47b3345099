package logging

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MiddlewareConfig controls FiberMiddleware.
type MiddlewareConfig struct {
	// SkipPaths are not logged (health probes).
	SkipPaths []string
}

// DefaultMiddlewareConfig skips the health endpoint.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{SkipPaths: []string{"/health"}}
}

// FiberMiddleware assigns a request ID, stores the logger in the request
// context and logs one line per request.
func FiberMiddleware(logger *Logger, cfg MiddlewareConfig) fiber.Handler {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, requestID)

		ctx := WithRequestID(c.UserContext(), requestID)
		if userID := c.Params("user_id"); userID != "" {
			ctx = WithUserID(ctx, userID)
		}
		c.SetUserContext(WithLogger(ctx, logger))

		if _, ok := skip[c.Path()]; ok {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)
		status := c.Response().StatusCode()

		fields := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", requestID,
		}
		switch {
		case err != nil:
			logger.Error("Request failed", append(fields, "error", err)...)
			return err
		case status >= 500:
			logger.Error("Server error", fields...)
		case status >= 400:
			logger.Warn("Client error", fields...)
		default:
			logger.Info("Request completed", fields...)
		}
		return nil
	}
}
