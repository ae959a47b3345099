package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sensacare/vitals/internal/downsampling"
	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/models"
)

// WriteReadings stores a batch. Each reading is validated on its own:
// 200 when all are accepted, 207 when some are and 422 when none are.
func (h *Handler) WriteReadings(c *fiber.Ctx) error {
	userID := c.Params("user_id")

	var req models.WriteReadingsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Failed to parse request body: "+err.Error())
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.readings.IngestBatch(ctx, userID, req.Readings)
	if err != nil {
		return h.errorResponse(c, err)
	}

	resp := models.WriteReadingsResponse{
		Accepted:  len(result.Accepted),
		Stored:    result.Stored,
		Rejected:  len(result.Rejected),
		Errors:    result.Rejected,
		RequestID: logging.RequestID(c.UserContext()),
	}

	status := fiber.StatusOK
	switch {
	case resp.Accepted == 0:
		status = fiber.StatusUnprocessableEntity
	case resp.Rejected > 0:
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(resp)
}

// GetReadings returns the user's readings inside the window, optionally
// thinned with ?downsample=<mode>&max_points=<n>.
func (h *Handler) GetReadings(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	w, err := h.window(c)
	if err != nil {
		return h.errorResponse(c, err)
	}

	mode := c.Query("downsample", string(downsampling.ModeNone))
	if !downsampling.IsValid(mode) {
		return badRequest(c, "INVALID_DOWNSAMPLE", "Unknown downsample mode: "+mode)
	}
	maxPoints := 0
	if raw := c.Query("max_points"); raw != "" {
		maxPoints, err = strconv.Atoi(raw)
		if err != nil || maxPoints <= 0 {
			return badRequest(c, "INVALID_MAX_POINTS", "max_points must be a positive integer")
		}
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	readings, err := h.readings.Query(ctx, userID, w)
	if err != nil {
		return h.errorResponse(c, err)
	}

	total := len(readings)
	readings, err = downsampling.Readings(readings, downsampling.Mode(mode), maxPoints)
	if err != nil {
		return badRequest(c, "INVALID_DOWNSAMPLE", err.Error())
	}

	return c.JSON(models.ReadingsResponse{
		UserID:      userID,
		StartTime:   w.Start.Format(time.RFC3339),
		EndTime:     w.End.Format(time.RFC3339),
		Count:       len(readings),
		Total:       total,
		Downsampled: len(readings) < total,
		Readings:    readings,
	})
}

// DeleteReadings removes the user's readings inside the window.
func (h *Handler) DeleteReadings(c *fiber.Ctx) error {
	w, err := h.window(c)
	if err != nil {
		return h.errorResponse(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	deleted, err := h.readings.Delete(ctx, c.Params("user_id"), w)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(models.DeleteResponse{Deleted: deleted})
}
