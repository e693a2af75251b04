package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types emitted by the harvesters.
const (
	EventMessageSent         = "message_sent"
	EventMessageReceived     = "message_received"
	EventDailyQuestionMissed = "daily_question_missed"
	EventQuizCompleted       = "quiz_completed"
	EventCalendarGapDetected = "calendar_gap_detected"
)

// ActivityEvent is a discrete behavioral fact ingested for downstream automation.
// The dedupe key makes ingestion idempotent: at most one row exists per key.
type ActivityEvent struct {
	ID          string            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string            `gorm:"size:64;not null;index:idx_activity_user_occurred,priority:1" json:"user_id"`
	EventType   string            `gorm:"size:64;not null" json:"event_type"`
	Source      string            `gorm:"size:64;not null" json:"source"`
	Scenario    string            `gorm:"size:64;index" json:"scenario,omitempty"`
	Payload     datatypes.JSONMap `gorm:"type:json" json:"payload"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	DedupeKey   *string           `gorm:"size:160;uniqueIndex" json:"dedupe_key,omitempty"`
	OccurredAt  time.Time         `gorm:"index:idx_activity_user_occurred,priority:2,sort:desc" json:"occurred_at"`
	RecordedAt  time.Time         `json:"recorded_at"`
	Processed   bool              `gorm:"index" json:"processed"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty"`
}

// BeforeCreate assigns an opaque id when the caller did not provide one.
func (e *ActivityEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
