package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// PaymentCustomer maps a local user to a gateway customer. The unique index
// on (user_id, gateway) makes get-or-create idempotent.
type PaymentCustomer struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID            `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_payment_customers_user_gateway"`
	Gateway           enums.PaymentGateway `gorm:"column:gateway;type:payment_gateway;not null;uniqueIndex:idx_payment_customers_user_gateway"`
	GatewayCustomerID string               `gorm:"column:gateway_customer_id;not null;unique"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// PaymentTransaction maps an order or subscription to a gateway charge.
type PaymentTransaction struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID              *uuid.UUID           `gorm:"column:order_id;type:uuid;index"`
	SubscriptionID       *uuid.UUID           `gorm:"column:subscription_id;type:uuid;index"`
	UserID               uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Gateway              enums.PaymentGateway `gorm:"column:gateway;type:payment_gateway;not null"`
	GatewayTransactionID string               `gorm:"column:gateway_transaction_id;not null;uniqueIndex"`
	Status               enums.PaymentStatus  `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	AmountCents          int                  `gorm:"column:amount_cents;not null"`
	RefundedCents        int                  `gorm:"column:refunded_cents;not null;default:0"`
	Currency             string               `gorm:"column:currency;not null;default:'usd'"`
	FailureReason        *string              `gorm:"column:failure_reason;type:text"`
	CompletedAt          *time.Time           `gorm:"column:completed_at"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
