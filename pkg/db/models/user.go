package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// User mirrors the identity-provider subject so orders, carts and payouts
// have a local row to reference. Authentication itself happens upstream.
type User struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email      string         `gorm:"column:email;not null;uniqueIndex"`
	Name       string         `gorm:"column:name;type:text;not null"`
	Role       enums.UserRole `gorm:"column:role;type:user_role;not null;default:'buyer'"`
	LastSeenAt *time.Time     `gorm:"column:last_seen_at"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
