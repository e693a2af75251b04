package dto

import (
	"time"

	"github.com/noah-isme/together-agent-api/internal/models"
)

// ActivityFeedRequest filters the activity feed read.
type ActivityFeedRequest struct {
	UserID           string
	Limit            int
	Since            *time.Time
	Scenario         string
	IncludeProcessed bool
}

// ActivityFeedResponse is the incremental activity feed payload.
type ActivityFeedResponse struct {
	Events           []models.ActivityEvent `json:"events"`
	Count            int                    `json:"count"`
	LatestOccurredAt *time.Time             `json:"latest_occurred_at,omitempty"`
}

// AcknowledgeEventsRequest marks feed events as seen/processed.
type AcknowledgeEventsRequest struct {
	EventIDs []string `json:"event_ids" validate:"required,min=1"`
}

// DecisionRunRequest triggers a decision engine pass.
type DecisionRunRequest struct {
	BatchSize         int      `json:"batch_size"`
	TimeBudgetSeconds *float64 `json:"time_budget_seconds"`
}

// DecisionStats reports the outcome of a decision engine pass.
type DecisionStats struct {
	EventsProcessed int           `json:"events_processed"`
	PlansGenerated  int           `json:"plans_generated"`
	Duration        time.Duration `json:"duration"`
}

// ExecuteActionRequest carries an optional execution payload override.
type ExecuteActionRequest struct {
	Input        map[string]interface{} `json:"input"`
	AutoApproved bool                   `json:"auto_approved"`
}

// FeedbackRequest records a user's verdict on a queued action.
type FeedbackRequest struct {
	Rating  *int   `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment string `json:"comment"`
	Status  string `json:"status" validate:"omitempty,oneof=acknowledged executed cancelled"`
}

// AnalyzeRequest asks for tone analysis of a draft message.
type AnalyzeRequest struct {
	Content string `json:"content" validate:"required"`
}

// QueueResponse lists pending (and optionally completed) queue entries.
type QueueResponse struct {
	Pending      []models.ActionPlan `json:"pending"`
	Recent       []models.ActionPlan `json:"recent,omitempty"`
	PendingCount int                 `json:"pending_count"`
}

// ActionsResponse combines cached suggestions with the automation queue.
type ActionsResponse struct {
	Suggestions     []Suggestion        `json:"suggestions"`
	AutomationQueue []models.ActionPlan `json:"automation_queue"`
	LLM             *BundleMetadata     `json:"llm,omitempty"`
}
