package ai

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the language-model capability cannot serve the
// call right now (disabled, cooling down, or transport failure). Callers are
// expected to degrade to deterministic behavior, never to surface this.
var ErrUnavailable = errors.New("language model capability unavailable")

// DailyQuestion is today's shared reflection with any recorded answers.
type DailyQuestion struct {
	Question      string `json:"question"`
	YourAnswer    string `json:"your_answer,omitempty"`
	PartnerAnswer string `json:"partner_answer,omitempty"`
	Answered      bool   `json:"answered"`
}

// Message is one entry of the recent conversation history.
type Message struct {
	Author    string `json:"author"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CalendarEvent is an upcoming shared plan.
type CalendarEvent struct {
	Title     string `json:"title"`
	StartTime string `json:"start_time,omitempty"`
}

// Context is the bounded conversational context attached to every planner
// call for explainability.
type Context struct {
	PartnerStatus  string          `json:"partner_status,omitempty"`
	StyleSummary   string          `json:"style_summary,omitempty"`
	DailyQuestion  *DailyQuestion  `json:"daily_question,omitempty"`
	RecentMessages []Message       `json:"recent_messages,omitempty"`
	UpcomingEvents []CalendarEvent `json:"upcoming_events,omitempty"`
}

// EventInput describes the activity event a plan is requested for.
type EventInput struct {
	EventType string
	Scenario  string
	Payload   map[string]interface{}
}

// ActionProposal is one normalized action suggested by the model.
type ActionProposal struct {
	ActionType       string
	Title            string
	Summary          string
	Confidence       float64
	RequiresApproval bool
	CallToAction     string
	SuggestedMessage string
	Rationale        string
}

// PlanResult is the normalized output of an action-planning call.
type PlanResult struct {
	Actions     []ActionProposal
	Strategy    string
	Explanation string
	Model       string
}

// ToneAnalysis is the normalized output of a tone-analysis call.
type ToneAnalysis struct {
	Sentiment      string
	Confidence     float64
	ToneSummary    string
	CoachingTips   []string
	Strengths      []string
	Warnings       []string
	SuggestedReply string
	Model          string
}

// SuggestionCard is one normalized coaching suggestion.
type SuggestionCard struct {
	Type             string
	Title            string
	Summary          string
	Confidence       *float64
	CallToAction     string
	SuggestedMessage string
}

// CoachingResult is the normalized output of a coaching-planning call.
type CoachingResult struct {
	Cards       []SuggestionCard
	Strategy    string
	Explanation string
	Model       string
}

// Planner is the consumed contract of the language-model capability. Every
// operation degrades to ErrUnavailable rather than raising on backend
// failure or timeout.
type Planner interface {
	PlanActions(ctx context.Context, event EventInput, conversation Context) (PlanResult, error)
	PlanCoaching(ctx context.Context, conversation Context) (CoachingResult, error)
	AnalyzeTone(ctx context.Context, draft string, conversation Context) (ToneAnalysis, error)
}
