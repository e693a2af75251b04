package models

import "time"

// HarvestCursor persists the incremental position of a harvester between
// polling passes.
type HarvestCursor struct {
	Name      string    `gorm:"size:80;primaryKey" json:"name"`
	Value     string    `gorm:"size:200" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
