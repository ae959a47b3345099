package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/middleware"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/services"
	"github.com/sensacare/vitals/internal/utils"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger    *logging.Logger
	readings  *services.ReadingService
	profiles  *services.ProfileService
	analytics *services.AnalyticsService
	storage   Pinger
	lookback  time.Duration
	version   string
	now       func() time.Time
}

// Pinger reports backend reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures New.
type Options struct {
	// Lookback is the window length when start_time is omitted.
	Lookback time.Duration
	Version  string
	// Storage is probed by /health when set.
	Storage Pinger
}

// New creates a new handler instance
func New(logger *logging.Logger, readings *services.ReadingService, profiles *services.ProfileService,
	analytics *services.AnalyticsService, opts Options,
) *Handler {
	if opts.Lookback <= 0 {
		opts.Lookback = utils.DefaultLookback
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Handler{
		logger:    logger,
		readings:  readings,
		profiles:  profiles,
		analytics: analytics,
		storage:   opts.Storage,
		lookback:  opts.Lookback,
		version:   opts.Version,
		now:       time.Now,
	}
}

// requestContext bounds a service call by the request timeout and tags it
// with the path user.
func (h *Handler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx := c.UserContext()
	if userID := c.Params("user_id"); userID != "" {
		ctx = logging.WithUserID(ctx, userID)
	}
	return context.WithTimeout(ctx, utils.DefaultRequestTimeout)
}

// errorResponse writes err through the shared error mapping.
func (h *Handler) errorResponse(c *fiber.Ctx, err error) error {
	return middleware.WriteError(c, h.logger.WithContext(c.UserContext()), err)
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Path:    c.Path(),
		},
	})
}

// window reads optional RFC3339 start_time and end_time query parameters.
func (h *Handler) window(c *fiber.Ctx) (services.Window, error) {
	var start, end time.Time
	if s := c.Query("start_time"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return services.Window{}, errInvalidTime("start_time")
		}
		start = t
	}
	if s := c.Query("end_time"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return services.Window{}, errInvalidTime("end_time")
		}
		end = t
	}
	return services.NewWindow(start, end, h.now(), h.lookback)
}

func errInvalidTime(param string) error {
	return services.NewServiceErrorWithDetails(services.CodeInvalidArgument,
		param+" must be in RFC3339 format", map[string]interface{}{"field": param})
}
