package service

import (
	"context"

	"github.com/noah-isme/together-agent-api/pkg/ai"
)

// Messenger delivers composed messages on the user's behalf. The platform
// messaging surface is an external collaborator; only this contract is
// consumed here.
type Messenger interface {
	SendMessage(ctx context.Context, userID, content string) (map[string]interface{}, error)
}

// CalendarScheduler creates shared calendar events on the user's behalf.
type CalendarScheduler interface {
	CreateEvent(ctx context.Context, userID, title, date, timeOfDay, description string) (map[string]interface{}, error)
}

// ContextProvider assembles the bounded conversational context used by the
// planner and the fallback suggestion builder.
type ContextProvider interface {
	BuildContext(ctx context.Context, userID string) (ai.Context, error)
}

// SentimentScorer is the deterministic sentiment heuristic, an external
// collaborator used only when the language model is unavailable.
type SentimentScorer interface {
	Score(text string) (label string, probabilityPositive float64)
}
