package models

import (
	"time"

	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// WebhookEvent is the durable idempotency record for gateway callbacks.
// The row is inserted in the same transaction as the state transition it
// triggered; a unique violation on EventID means the event was already
// applied and must be dropped.
type WebhookEvent struct {
	EventID     string               `gorm:"column:event_id;primaryKey"`
	Gateway     enums.PaymentGateway `gorm:"column:gateway;type:payment_gateway;not null"`
	EventType   string               `gorm:"column:event_type;not null;index"`
	ProcessedAt time.Time            `gorm:"column:processed_at;not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
