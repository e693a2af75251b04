package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/together-agent-api/internal/models"
)

const maxQueueListLimit = 100

// ErrNoPendingTransition signals that a plan was not in the pending state
// when a transition was attempted.
var ErrNoPendingTransition = errors.New("action plan is not pending")

// ActionQueueFilter narrows queue listings.
type ActionQueueFilter struct {
	UserID           string
	Limit            int
	IncludeCompleted bool
}

// ActionQueueRepository persists action plans through their status lifecycle.
type ActionQueueRepository interface {
	// Enqueue stores the plans with pending status, defaulting timestamps.
	Enqueue(ctx context.Context, plans []*models.ActionPlan) ([]string, error)
	// ListPending returns plans newest first; only pending rows unless
	// IncludeCompleted is set. The limit is clamped to [1,100].
	ListPending(ctx context.Context, filter ActionQueueFilter) ([]models.ActionPlan, error)
	// UpdateStatus transitions the given plans in bulk. Metadata entries are
	// merged last-write-wins and updated_at is touched.
	UpdateStatus(ctx context.Context, ids []string, status string, metadata map[string]interface{}) (int64, error)
	// Get returns a plan by id, nil when unknown.
	Get(ctx context.Context, id string) (*models.ActionPlan, error)
	// TransitionFromPending moves a single plan out of pending. It fails with
	// ErrNoPendingTransition when the plan already left pending, which makes
	// the out-of-pending transition happen exactly once.
	TransitionFromPending(ctx context.Context, id string, status string, metadata map[string]interface{}) error
}

type actionQueueRepository struct {
	db *gorm.DB
}

// NewActionQueueRepository constructs the action queue store.
func NewActionQueueRepository(db *gorm.DB) ActionQueueRepository {
	return &actionQueueRepository{db: db}
}

func (r *actionQueueRepository) Enqueue(ctx context.Context, plans []*models.ActionPlan) ([]string, error) {
	if len(plans) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	for _, plan := range plans {
		if plan.Status == "" {
			plan.Status = models.ActionStatusPending
		}
		if plan.GeneratedAt.IsZero() {
			plan.GeneratedAt = now
		}
	}
	if err := r.db.WithContext(ctx).Create(plans).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(plans))
	for _, plan := range plans {
		ids = append(ids, plan.ID)
	}
	return ids, nil
}

func (r *actionQueueRepository) ListPending(ctx context.Context, filter ActionQueueFilter) ([]models.ActionPlan, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > maxQueueListLimit {
		limit = maxQueueListLimit
	}

	query := r.db.WithContext(ctx).Model(&models.ActionPlan{}).
		Where("user_id = ?", filter.UserID)
	if !filter.IncludeCompleted {
		query = query.Where("status = ?", models.ActionStatusPending)
	}

	var plans []models.ActionPlan
	if err := query.Order("created_at DESC").Limit(limit).Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *actionQueueRepository) UpdateStatus(ctx context.Context, ids []string, status string, metadata map[string]interface{}) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var updated int64
	now := time.Now().UTC()
	for _, id := range ids {
		plan, err := r.Get(ctx, id)
		if err != nil {
			return updated, err
		}
		if plan == nil {
			continue
		}
		merged := mergeMetadata(plan.Metadata, metadata)
		result := r.db.WithContext(ctx).Model(&models.ActionPlan{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     status,
				"metadata":   datatypes.JSONMap(merged),
				"updated_at": now,
			})
		if result.Error != nil {
			return updated, result.Error
		}
		updated += result.RowsAffected
	}
	return updated, nil
}

func (r *actionQueueRepository) Get(ctx context.Context, id string) (*models.ActionPlan, error) {
	var plan models.ActionPlan
	err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *actionQueueRepository) TransitionFromPending(ctx context.Context, id string, status string, metadata map[string]interface{}) error {
	plan, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if plan == nil {
		return gorm.ErrRecordNotFound
	}

	merged := mergeMetadata(plan.Metadata, metadata)
	result := r.db.WithContext(ctx).Model(&models.ActionPlan{}).
		Where("id = ? AND status = ?", id, models.ActionStatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"metadata":   datatypes.JSONMap(merged),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoPendingTransition
	}
	return nil
}

func mergeMetadata(existing map[string]interface{}, updates map[string]interface{}) map[string]interface{} {
	merged := map[string]interface{}{}
	for key, value := range existing {
		merged[key] = value
	}
	for key, value := range updates {
		merged[key] = value
	}
	return merged
}
