package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/together-agent-api/internal/models"
)

// CursorRepository persists incremental positions for the harvester polls.
type CursorRepository interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name string, value string) error
}

type cursorRepository struct {
	db *gorm.DB
}

// NewCursorRepository constructs the harvest cursor store.
func NewCursorRepository(db *gorm.DB) CursorRepository {
	return &cursorRepository{db: db}
}

func (r *cursorRepository) Get(ctx context.Context, name string) (string, error) {
	var cursor models.HarvestCursor
	err := r.db.WithContext(ctx).First(&cursor, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cursor.Value, nil
}

func (r *cursorRepository) Set(ctx context.Context, name string, value string) error {
	cursor := models.HarvestCursor{Name: name, Value: value, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&cursor).Error
}
