package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sensacare/vitals/internal/models"
)

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	profile, err := h.profiles.Get(ctx, c.Params("user_id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(profile)
}

// PutProfile replaces the user's profile.
func (h *Handler) PutProfile(c *fiber.Ctx) error {
	var req models.ProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Failed to parse request body: "+err.Error())
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	profile, err := h.profiles.Save(ctx, c.Params("user_id"), req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(profile)
}
