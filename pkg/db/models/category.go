package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is one node in the category tree. The hierarchy is stored as an
// arena of rows with explicit parent pointers; traversal is iterative, never
// a recursive object graph.
type Category struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ParentID  *uuid.UUID `gorm:"column:parent_id;type:uuid;index"`
	Name      string     `gorm:"column:name;type:text;not null"`
	Slug      string     `gorm:"column:slug;not null;uniqueIndex"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
