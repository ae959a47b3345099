package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sensacare/vitals/internal/models"
)

const healthPingTimeout = 2 * time.Second

// Health reports 503 with status "degraded" when the storage backend does
// not answer a ping.
func (h *Handler) Health(c *fiber.Ctx) error {
	resp := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}
	if h.storage == nil {
		return c.JSON(resp)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), healthPingTimeout)
	defer cancel()

	resp.Storage = "ok"
	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("Storage ping failed", "error", err)
		resp.Status = "degraded"
		resp.Storage = "unreachable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

// NotFound is the catch-all route.
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
