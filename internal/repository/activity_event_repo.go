package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/together-agent-api/internal/models"
)

const maxActivityFetchLimit = 500

// ActivityEventFilter narrows activity log reads.
type ActivityEventFilter struct {
	Limit            int
	Since            *time.Time
	Scenario         string
	IncludeProcessed bool
	UserID           string
}

// ActivityEventRepository is the durable, dedup-aware append log of
// behavioral events.
type ActivityEventRepository interface {
	// RecordEvent inserts the event. When the dedupe key already exists the
	// stored event is returned unchanged and no new row is created.
	RecordEvent(ctx context.Context, event *models.ActivityEvent) (*models.ActivityEvent, error)
	// FetchRecent returns events ordered newest first.
	FetchRecent(ctx context.Context, filter ActivityEventFilter) ([]models.ActivityEvent, error)
	// MarkProcessed flags the events as processed; already-processed ids are
	// a no-op.
	MarkProcessed(ctx context.Context, ids []string) (int64, error)
	// AnnotateFailure merges a processing error message into the event metadata.
	AnnotateFailure(ctx context.Context, id string, message string) error
	// PruneBefore deletes events that occurred before the cutoff regardless
	// of processed state.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type activityEventRepository struct {
	db *gorm.DB
}

// NewActivityEventRepository constructs the activity log store.
func NewActivityEventRepository(db *gorm.DB) ActivityEventRepository {
	return &activityEventRepository{db: db}
}

func (r *activityEventRepository) RecordEvent(ctx context.Context, event *models.ActivityEvent) (*models.ActivityEvent, error) {
	now := time.Now().UTC()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now
	}
	event.RecordedAt = now
	event.Processed = false
	if event.Payload == nil {
		event.Payload = map[string]interface{}{}
	}
	if event.Metadata == nil {
		event.Metadata = map[string]interface{}{}
	}

	if event.DedupeKey != nil && *event.DedupeKey != "" {
		if existing, err := r.findByDedupeKey(ctx, *event.DedupeKey); err == nil && existing != nil {
			return existing, nil
		}
	}

	err := r.db.WithContext(ctx).Create(event).Error
	if err == nil {
		return event, nil
	}

	// A concurrent writer may have won the unique-index race on the dedupe
	// key; resolve by re-reading the winner.
	if event.DedupeKey != nil && isDuplicateKeyError(err) {
		existing, findErr := r.findByDedupeKey(ctx, *event.DedupeKey)
		if findErr == nil && existing != nil {
			return existing, nil
		}
	}

	return nil, err
}

func (r *activityEventRepository) findByDedupeKey(ctx context.Context, key string) (*models.ActivityEvent, error) {
	var existing models.ActivityEvent
	err := r.db.WithContext(ctx).Where("dedupe_key = ?", key).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

func (r *activityEventRepository) FetchRecent(ctx context.Context, filter ActivityEventFilter) ([]models.ActivityEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > maxActivityFetchLimit {
		limit = maxActivityFetchLimit
	}

	query := r.db.WithContext(ctx).Model(&models.ActivityEvent{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Since != nil {
		query = query.Where("occurred_at > ?", *filter.Since)
	}
	if filter.Scenario != "" {
		query = query.Where("scenario = ?", filter.Scenario)
	}
	if !filter.IncludeProcessed {
		query = query.Where("processed = ?", false)
	}

	var events []models.ActivityEvent
	if err := query.Order("occurred_at DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *activityEventRepository) MarkProcessed(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.ActivityEvent{}).
		Where("id IN ? AND processed = ?", ids, false).
		Updates(map[string]interface{}{"processed": true, "processed_at": now})
	return result.RowsAffected, result.Error
}

func (r *activityEventRepository) AnnotateFailure(ctx context.Context, id string, message string) error {
	var event models.ActivityEvent
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return err
	}
	if event.Metadata == nil {
		event.Metadata = map[string]interface{}{}
	}
	event.Metadata["planner_error"] = message
	return r.db.WithContext(ctx).Model(&event).Update("metadata", event.Metadata).Error
}

func (r *activityEventRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("occurred_at < ?", cutoff).
		Delete(&models.ActivityEvent{})
	return result.RowsAffected, result.Error
}
