package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// Payout is a seller-owed amount accrued from completed orders. Transitions
// follow pending -> approved/rejected -> processing -> completed/failed and
// approval is an admin action.
type Payout struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	SellerID        uuid.UUID          `gorm:"column:seller_id;type:uuid;not null;index"`
	OrderID         *uuid.UUID         `gorm:"column:order_id;type:uuid;index"`
	AmountCents     int                `gorm:"column:amount_cents;not null"`
	Currency        string             `gorm:"column:currency;not null;default:'usd'"`
	Status          enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	ApprovedBy      *uuid.UUID         `gorm:"column:approved_by;type:uuid"`
	ApprovedAt      *time.Time         `gorm:"column:approved_at"`
	RejectionReason *string            `gorm:"column:rejection_reason;type:text"`
	SettledAt       *time.Time         `gorm:"column:settled_at"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
