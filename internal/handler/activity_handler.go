package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/dto"
	"github.com/noah-isme/together-agent-api/internal/service"
	"github.com/noah-isme/together-agent-api/internal/utils"
)

// ActivityHandler serves the activity feed and event acknowledgements.
type ActivityHandler struct {
	activity service.ActivityService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewActivityHandler constructs the activity handler.
func NewActivityHandler(activity service.ActivityService, validate *validator.Validate, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activity: activity,
		validate: validate,
		logger:   logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register wires activity routes.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("/activity", h.feed)
	router.Post("/activity/ack", h.acknowledge)
}

func (h *ActivityHandler) feed(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	since, err := parseQueryTime(c, "since")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid since timestamp")
	}

	response, err := h.activity.FetchRecent(c.UserContext(), dto.ActivityFeedRequest{
		UserID:           userIDFromContext(c),
		Limit:            limit,
		Since:            since,
		Scenario:         c.Query("scenario"),
		IncludeProcessed: parseQueryBool(c, "include_processed"),
	})
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to fetch activity feed")
	}

	return utils.SendSuccess(c, "activity feed", response)
}

func (h *ActivityHandler) acknowledge(c *fiber.Ctx) error {
	var payload dto.AcknowledgeEventsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "event_ids are required")
	}

	count, err := h.activity.MarkProcessed(c.UserContext(), payload.EventIDs)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to acknowledge events")
	}

	return utils.SendSuccess(c, "events acknowledged", fiber.Map{"acknowledged": count})
}
