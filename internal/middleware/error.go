package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/services"
)

// StatusFor maps a service error code to an HTTP status.
func StatusFor(code string) int {
	switch code {
	case services.CodeInvalidArgument:
		return fiber.StatusBadRequest
	case services.CodeInsufficientData, services.CodeMissingAge, services.CodeMissingProfileField:
		return fiber.StatusUnprocessableEntity
	case services.CodeProfileNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// WriteError renders err as an ErrorResponse. fiber errors keep their
// status, service errors are mapped by StatusFor, deadlines become 504 and
// anything else is a 500 that hides the cause.
func WriteError(c *fiber.Ctx, logger *logging.Logger, err error) error {
	status, detail := classify(err)
	detail.Path = c.Path()

	if status >= fiber.StatusInternalServerError {
		logger.Error("Request error",
			"path", c.Path(),
			"method", c.Method(),
			"status", status,
			"code", detail.Code,
			"error", err)
	}
	return c.Status(status).JSON(models.ErrorResponse{Error: detail})
}

func classify(err error) (int, models.ErrorDetail) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, models.ErrorDetail{Code: statusCode(fe.Code), Message: fe.Message}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusGatewayTimeout, models.ErrorDetail{Code: "TIMEOUT", Message: "Request timed out"}
	}

	var se *services.ServiceError
	if errors.As(err, &se) {
		status := StatusFor(se.Code)
		detail := models.ErrorDetail{Code: se.Code, Message: se.Message}
		if status < fiber.StatusInternalServerError {
			detail.Details = se.Details
		}
		return status, detail
	}

	return fiber.StatusInternalServerError, models.ErrorDetail{Code: "INTERNAL", Message: "Internal Server Error"}
}

// statusCode turns 404 into NOT_FOUND.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

// ErrorHandler is the fiber.Config ErrorHandler for errors returned by
// handlers and middleware.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return WriteError(c, logger, err)
	}
}
