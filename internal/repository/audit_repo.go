package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/together-agent-api/internal/models"
)

// AuditRepository is the append-only sink for execution outcomes.
type AuditRepository interface {
	Log(ctx context.Context, record *models.AuditRecord) error
	ListRecent(ctx context.Context, userID string, limit int) ([]models.AuditRecord, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository constructs the audit sink.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, record *models.AuditRecord) error {
	if record.Metadata == nil {
		record.Metadata = map[string]interface{}{}
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *auditRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []models.AuditRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
