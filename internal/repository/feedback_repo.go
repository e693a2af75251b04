package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/together-agent-api/internal/models"
)

// FeedbackRepository stores user feedback on agent actions.
type FeedbackRepository interface {
	Record(ctx context.Context, feedback *models.FeedbackRecord) error
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository constructs the feedback store.
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Record(ctx context.Context, feedback *models.FeedbackRecord) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}
