package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Action plan lifecycle statuses. Executing is a transient claim held only
// while the execution service performs collaborator calls; it is never the
// final state of a plan.
const (
	ActionStatusPending      = "pending"
	ActionStatusExecuting    = "executing"
	ActionStatusAcknowledged = "acknowledged"
	ActionStatusExecuted     = "executed"
	ActionStatusFailed       = "failed"
	ActionStatusCancelled    = "cancelled"
)

// Workflow scenarios recognised by the planner.
const (
	ScenarioOnboarding          = "onboarding"
	ScenarioDailyCheckIn        = "daily_check_in"
	ScenarioQuizFollowUp        = "quiz_follow_up"
	ScenarioAnniversaryPlanning = "anniversary_planning"
)

// Action types produced by the deterministic planner handlers.
const (
	ActionCollectStyleSamples       = "collect_style_samples"
	ActionPromptFirstMessage        = "prompt_first_message"
	ActionSendDailyQuestionReminder = "send_daily_question_reminder"
	ActionDraftPartnerReply         = "draft_partner_reply"
	ActionSendQuizFollowup          = "send_quiz_followup"
	ActionSuggestCalendarEvent      = "suggest_calendar_event"
)

// Sources of a generated plan.
const (
	AISourceLegacy = "legacy"
	AISourceModel  = "model"
)

// ActionPlan is a proposed automated or semi-automated action awaiting
// approval and execution.
type ActionPlan struct {
	ID               string            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string            `gorm:"size:64;not null;index:idx_plan_user_created,priority:1" json:"user_id"`
	Workflow         string            `gorm:"size:64;not null" json:"workflow"`
	TriggerEventID   string            `gorm:"size:64" json:"trigger_event_id,omitempty"`
	ActionType       string            `gorm:"size:64;not null" json:"action_type"`
	Title            string            `gorm:"size:200" json:"title"`
	Summary          string            `json:"summary"`
	Confidence       float64           `json:"confidence"`
	RequiresApproval bool              `json:"requires_approval"`
	Payload          datatypes.JSONMap `gorm:"type:json" json:"payload"`
	ContextSnapshot  datatypes.JSONMap `gorm:"type:json" json:"context_snapshot"`
	Rationale        string            `json:"rationale,omitempty"`
	AISource         string            `gorm:"size:16;default:legacy" json:"ai_source"`
	LLMMetadata      datatypes.JSONMap `gorm:"type:json" json:"llm_metadata,omitempty"`
	Metadata         datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	Status           string            `gorm:"size:24;index;default:pending" json:"status"`
	GeneratedAt      time.Time         `json:"generated_at"`
	CreatedAt        time.Time         `gorm:"index:idx_plan_user_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// BeforeCreate assigns an opaque id when the caller did not provide one.
func (p *ActionPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
