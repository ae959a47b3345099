package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sensacare/vitals/internal/analytics/heartrate"
)

// Zones computes zones from query parameters without a stored profile.
func (h *Handler) Zones(c *fiber.Ctx) error {
	age, err := strconv.Atoi(c.Query("age"))
	if err != nil {
		return badRequest(c, "INVALID_ARGUMENT", "age is required and must be an integer")
	}

	var rhr *int
	if s := c.Query("resting_heart_rate"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return badRequest(c, "INVALID_ARGUMENT", "resting_heart_rate must be an integer")
		}
		rhr = &v
	}

	zones, err := h.analytics.ZonesFor(age, rhr)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(zones)
}

// UserZones computes zones from the stored profile. method is standard or
// karvonen; empty picks karvonen when a resting heart rate is on file.
func (h *Handler) UserZones(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	zones, err := h.analytics.Zones(ctx, c.Params("user_id"), heartrate.ZoneMethod(c.Query("method")))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(zones)
}

func (h *Handler) Stats(c *fiber.Ctx) error {
	w, err := h.window(c)
	if err != nil {
		return h.errorResponse(c, err)
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	stats, err := h.analytics.Stats(ctx, c.Params("user_id"), w)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(stats)
}

func (h *Handler) HRV(c *fiber.Ctx) error {
	w, err := h.window(c)
	if err != nil {
		return h.errorResponse(c, err)
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	hrv, err := h.analytics.HRV(ctx, c.Params("user_id"), w)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(hrv)
}

func (h *Handler) Trends(c *fiber.Ctx) error {
	w, err := h.window(c)
	if err != nil {
		return h.errorResponse(c, err)
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	trends, err := h.analytics.Trends(ctx, c.Params("user_id"), w)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(trends)
}

func (h *Handler) Abnormalities(c *fiber.Ctx) error {
	w, err := h.window(c)
	if err != nil {
		return h.errorResponse(c, err)
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	detection, err := h.analytics.Abnormalities(ctx, c.Params("user_id"), w)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(detection)
}

// Outliers flags likely sensor artifacts: ?method=auto|zscore|iqr|moving_avg
// and an optional numeric threshold.
func (h *Handler) Outliers(c *fiber.Ctx) error {
	w, err := h.window(c)
	if err != nil {
		return h.errorResponse(c, err)
	}

	var threshold float64
	if s := c.Query("threshold"); s != "" {
		threshold, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return badRequest(c, "INVALID_ARGUMENT", "threshold must be a number")
		}
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	report, err := h.analytics.Outliers(ctx, c.Params("user_id"), w, c.Query("method"), threshold)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(report)
}

// Report runs every analysis. Sections that fail are listed under errors
// while the rest are still returned with 200.
func (h *Handler) Report(c *fiber.Ctx) error {
	w, err := h.window(c)
	if err != nil {
		return h.errorResponse(c, err)
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	report, err := h.analytics.Report(ctx, c.Params("user_id"), w)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(report)
}
