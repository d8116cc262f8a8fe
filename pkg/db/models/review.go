package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is the buyer's feedback for a single purchased item. The unique
// index on OrderItemID enforces the 1:1 relationship.
type Review struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderItemID uuid.UUID `gorm:"column:order_item_id;type:uuid;not null;uniqueIndex"`
	ListingID   uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index"`
	ReviewerID  uuid.UUID `gorm:"column:reviewer_id;type:uuid;not null;index"`
	Rating      int       `gorm:"column:rating;not null"`
	Comment     *string   `gorm:"column:comment;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
