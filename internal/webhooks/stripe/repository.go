package stripewebhook

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// EventStore records processed gateway events. The insert rides in the same
// transaction as the state transition so replays cannot apply twice.
type EventStore struct {
	db *gorm.DB
}

// NewEventStore builds the store bound to the provided DB.
func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// Record inserts the dedup row. Returns (true, nil) when this delivery is a
// duplicate of an already-applied event.
func (s *EventStore) Record(ctx context.Context, tx *gorm.DB, eventID, eventType string) (bool, error) {
	conn := s.db
	if tx != nil {
		conn = tx
	}
	row := models.WebhookEvent{
		EventID:     eventID,
		Gateway:     enums.PaymentGatewayStripe,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	}
	if err := conn.WithContext(ctx).Create(&row).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
