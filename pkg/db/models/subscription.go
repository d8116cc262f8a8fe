package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// BillingPlan is a recurring SaaS plan sellers can subscribe to.
type BillingPlan struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Code           string                `gorm:"column:code;not null;uniqueIndex"`
	Name           string                `gorm:"column:name;type:text;not null"`
	PriceCents     int                   `gorm:"column:price_cents;not null"`
	Interval       enums.BillingInterval `gorm:"column:interval;type:billing_interval;not null;default:'month'"`
	GatewayPriceID string                `gorm:"column:gateway_price_id;not null"`
	Active         bool                  `gorm:"column:active;not null;default:true"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// MonthlyPrice normalizes the plan price to a per-month decimal amount.
func (p BillingPlan) MonthlyPrice() decimal.Decimal {
	price := decimal.NewFromInt(int64(p.PriceCents)).Div(decimal.NewFromInt(100))
	if p.Interval == enums.BillingIntervalYear {
		return price.Div(decimal.NewFromInt(12)).Round(2)
	}
	return price
}

// Subscription persists gateway subscription state per user. At most one
// row per user may be ACTIVE at any time.
type Subscription struct {
	ID                    uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	UserID                uuid.UUID                `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_subscriptions_user_plan"`
	PlanID                uuid.UUID                `gorm:"column:plan_id;type:uuid;not null;uniqueIndex:idx_subscriptions_user_plan"`
	Status                enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	GatewaySubscriptionID string                   `gorm:"column:gateway_subscription_id;not null;unique"`
	NextBillingDate       time.Time                `gorm:"column:next_billing_date;not null"`
	CancelledAt           *time.Time               `gorm:"column:cancelled_at"`
	CreatedAt             time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
