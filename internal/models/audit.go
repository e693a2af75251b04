package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditRecord is an append-only trace of an agent action outcome.
type AuditRecord struct {
	ID         string            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string            `gorm:"size:64;not null;index:idx_audit_user_created,priority:1" json:"user_id"`
	ActionID   string            `gorm:"size:64;index" json:"action_id,omitempty"`
	ActionType string            `gorm:"size:64;not null" json:"action_type"`
	Status     string            `gorm:"size:24;not null" json:"status"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `gorm:"index:idx_audit_user_created,priority:2,sort:desc" json:"created_at"`
}

// BeforeCreate assigns an opaque id when the caller did not provide one.
func (a *AuditRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// FeedbackRecord captures a user rating or comment on an agent action.
type FeedbackRecord struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	ActionID  string    `gorm:"size:64;index" json:"action_id"`
	Rating    *int      `json:"rating,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	Status    string    `gorm:"size:24" json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns an opaque id when the caller did not provide one.
func (f *FeedbackRecord) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
