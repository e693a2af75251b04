package dto

import "time"

// Suggestion is one coaching card served to the user.
type Suggestion struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Summary     string                 `json:"summary"`
	Confidence  *float64               `json:"confidence,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	AISource    string                 `json:"ai_source"`
}

// BundleMetadata makes a served bundle reproducible: which model and
// strategy produced it, and when.
type BundleMetadata struct {
	Model       string    `json:"model"`
	Strategy    string    `json:"strategy"`
	Explanation string    `json:"explanation,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SuggestionBundle is the cached, ephemeral set of suggestions for a user.
type SuggestionBundle struct {
	UserID      string         `json:"user_id"`
	Suggestions []Suggestion   `json:"suggestions"`
	Metadata    BundleMetadata `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ToneAnalysisResponse is the tone analysis payload served by the analyze
// endpoint.
type ToneAnalysisResponse struct {
	Analysis       map[string]interface{} `json:"analysis"`
	Strengths      []string               `json:"strengths"`
	Tips           []string               `json:"tips"`
	LLMFeedback    string                 `json:"llm_feedback,omitempty"`
	SuggestedReply string                 `json:"suggested_reply,omitempty"`
	Warnings       []string               `json:"warnings,omitempty"`
	AISource       string                 `json:"ai_source"`
	GeneratedAt    time.Time              `json:"generated_at"`
}
