package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/dto"
	"github.com/noah-isme/together-agent-api/internal/service"
	"github.com/noah-isme/together-agent-api/internal/utils"
)

// DecisionHandler triggers decision engine passes.
type DecisionHandler struct {
	decisions service.DecisionService
	logger    zerolog.Logger
}

// NewDecisionHandler constructs the decision handler.
func NewDecisionHandler(decisions service.DecisionService, logger zerolog.Logger) *DecisionHandler {
	return &DecisionHandler{
		decisions: decisions,
		logger:    logger.With().Str("component", "decision_handler").Logger(),
	}
}

// Register wires decision routes.
func (h *DecisionHandler) Register(router fiber.Router) {
	router.Post("/decisions/run", h.run)
}

func (h *DecisionHandler) run(c *fiber.Ctx) error {
	var payload dto.DecisionRunRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	var budget *time.Duration
	if payload.TimeBudgetSeconds != nil {
		if *payload.TimeBudgetSeconds < 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "time_budget_seconds must not be negative")
		}
		parsed := time.Duration(*payload.TimeBudgetSeconds * float64(time.Second))
		budget = &parsed
	}

	stats, err := h.decisions.ProcessPendingEvents(c.UserContext(), payload.BatchSize, userIDFromContext(c), budget)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "decision pass failed")
	}

	return utils.SendSuccess(c, "decision pass completed", stats)
}
