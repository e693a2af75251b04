package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/dto"
	"github.com/noah-isme/together-agent-api/internal/service"
	"github.com/noah-isme/together-agent-api/internal/utils"
)

// ActionHandler serves the combined actions view, the raw queue, and the
// execute/feedback operations.
type ActionHandler struct {
	queue     service.QueueService
	execution service.ExecutionService
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewActionHandler constructs the action handler.
func NewActionHandler(queue service.QueueService, execution service.ExecutionService, validate *validator.Validate, logger zerolog.Logger) *ActionHandler {
	return &ActionHandler{
		queue:     queue,
		execution: execution,
		validate:  validate,
		logger:    logger.With().Str("component", "action_handler").Logger(),
	}
}

// Register wires action routes.
func (h *ActionHandler) Register(router fiber.Router) {
	router.Get("/actions", h.actions)
	router.Get("/queue", h.queueList)
	router.Post("/actions/:id/execute", h.execute)
	router.Post("/actions/:id/feedback", h.feedback)
}

func (h *ActionHandler) actions(c *fiber.Ctx) error {
	response, err := h.queue.GetActions(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to load actions")
	}
	return utils.SendSuccess(c, "actions", response)
}

func (h *ActionHandler) queueList(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	response, err := h.queue.ListQueue(c.UserContext(), userIDFromContext(c), limit, parseQueryBool(c, "include_completed"))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to list queue")
	}
	return utils.SendSuccess(c, "action queue", response)
}

func (h *ActionHandler) execute(c *fiber.Ctx) error {
	actionID := c.Params("id")
	if actionID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "action id is required")
	}

	var payload dto.ExecuteActionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	result, err := h.execution.ExecuteAction(c.UserContext(), userIDFromContext(c), actionID, payload.Input, payload.AutoApproved)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "action execution failed")
	}

	return utils.SendSuccess(c, "action executed", result)
}

func (h *ActionHandler) feedback(c *fiber.Ctx) error {
	actionID := c.Params("id")
	if actionID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "action id is required")
	}

	var payload dto.FeedbackRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid feedback payload")
	}

	if err := h.queue.RecordFeedback(c.UserContext(), userIDFromContext(c), actionID, payload); err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to record feedback")
	}

	return utils.SendSuccess(c, "feedback recorded", nil)
}
