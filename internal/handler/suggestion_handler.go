package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/service"
	"github.com/noah-isme/together-agent-api/internal/utils"
)

// SuggestionHandler serves cached coaching bundles.
type SuggestionHandler struct {
	suggestions service.SuggestionService
	logger      zerolog.Logger
}

// NewSuggestionHandler constructs the suggestion handler.
func NewSuggestionHandler(suggestions service.SuggestionService, logger zerolog.Logger) *SuggestionHandler {
	return &SuggestionHandler{
		suggestions: suggestions,
		logger:      logger.With().Str("component", "suggestion_handler").Logger(),
	}
}

// Register wires suggestion routes.
func (h *SuggestionHandler) Register(router fiber.Router) {
	router.Get("/suggestions", h.list)
}

func (h *SuggestionHandler) list(c *fiber.Ctx) error {
	bundle, err := h.suggestions.GetSuggestions(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to load suggestions")
	}
	return utils.SendSuccess(c, "suggestions", bundle)
}
