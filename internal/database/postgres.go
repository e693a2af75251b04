package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/noah-isme/together-agent-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using
// the provided DSN. TranslateError is enabled so duplicate-key violations
// surface as gorm.ErrDuplicatedKey for the dedupe discipline.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate applies the agent schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ActivityEvent{},
		&models.ActionPlan{},
		&models.AuditRecord{},
		&models.FeedbackRecord{},
		&models.HarvestCursor{},
	)
}
