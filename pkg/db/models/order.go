package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// Order is an immutable snapshot created from a cart. TotalCents equals the
// sum of its items' price_at_purchase * quantity, computed once at creation.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID    uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	Status     enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	TotalCents int               `gorm:"column:total_cents;not null"`
	Currency   string            `gorm:"column:currency;not null;default:'usd'"`
	Items      []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaidAt     *time.Time        `gorm:"column:paid_at"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots (listing, quantity, price) at order-creation time.
// PriceAtPurchaseCents is never recomputed from the current listing price.
type OrderItem struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID              uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ListingID            uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index"`
	SellerID             uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Title                string    `gorm:"column:title;type:text;not null"`
	Quantity             int       `gorm:"column:quantity;not null"`
	PriceAtPurchaseCents int       `gorm:"column:price_at_purchase_cents;not null"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
}
