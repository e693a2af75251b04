package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/dto"
	"github.com/noah-isme/together-agent-api/internal/service"
	"github.com/noah-isme/together-agent-api/internal/utils"
)

// AnalyzeHandler serves tone analysis for message drafts.
type AnalyzeHandler struct {
	tone     service.ToneService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAnalyzeHandler constructs the analyze handler.
func NewAnalyzeHandler(tone service.ToneService, validate *validator.Validate, logger zerolog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		tone:     tone,
		validate: validate,
		logger:   logger.With().Str("component", "analyze_handler").Logger(),
	}
}

// Register wires analyze routes.
func (h *AnalyzeHandler) Register(router fiber.Router) {
	router.Post("/analyze", h.analyze)
}

func (h *AnalyzeHandler) analyze(c *fiber.Ctx) error {
	var payload dto.AnalyzeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "content is required")
	}

	response, err := h.tone.Analyze(c.UserContext(), userIDFromContext(c), payload.Content)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "tone analysis failed")
	}

	return utils.SendSuccess(c, "tone analysis", response)
}
