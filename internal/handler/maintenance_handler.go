package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/service"
	"github.com/noah-isme/together-agent-api/internal/utils"
)

// MaintenanceHandler exposes internal housekeeping operations.
type MaintenanceHandler struct {
	activity  service.ActivityService
	retention time.Duration
	logger    zerolog.Logger
}

// NewMaintenanceHandler constructs the maintenance handler.
func NewMaintenanceHandler(activity service.ActivityService, retention time.Duration, logger zerolog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		activity:  activity,
		retention: retention,
		logger:    logger.With().Str("component", "maintenance_handler").Logger(),
	}
}

// Register wires maintenance routes.
func (h *MaintenanceHandler) Register(router fiber.Router) {
	router.Post("/prune", h.prune)
}

func (h *MaintenanceHandler) prune(c *fiber.Ctx) error {
	retention := h.retention

	var payload struct {
		RetentionHours int `json:"retention_hours"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
		if payload.RetentionHours > 0 {
			retention = time.Duration(payload.RetentionHours) * time.Hour
		}
	}

	pruned, err := h.activity.PruneStale(c.UserContext(), retention)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "prune failed")
	}

	return utils.SendSuccess(c, "stale events pruned", fiber.Map{"pruned": pruned})
}
