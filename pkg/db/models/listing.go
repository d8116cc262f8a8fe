package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// Listing is a sellable item. AvailableQty is only ever mutated through
// conditional updates so it can never go negative under concurrent checkouts.
type Listing struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID     uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	CategoryID   *uuid.UUID          `gorm:"column:category_id;type:uuid"`
	Title        string              `gorm:"column:title;type:text;not null"`
	Description  *string             `gorm:"column:description;type:text"`
	PriceCents   int                 `gorm:"column:price_cents;not null"`
	AvailableQty int                 `gorm:"column:available_qty;not null;default:0"`
	Status       enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:'draft'"`
	ImageURL     *string             `gorm:"column:image_url;type:text"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
