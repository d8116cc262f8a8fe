package payouts

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// PayoutDTO is the API representation of a payout.
type PayoutDTO struct {
	ID              uuid.UUID          `json:"id"`
	SellerID        uuid.UUID          `json:"seller_id"`
	OrderID         *uuid.UUID         `json:"order_id,omitempty"`
	AmountCents     int                `json:"amount_cents"`
	Currency        string             `json:"currency"`
	Status          enums.PayoutStatus `json:"status"`
	ApprovedBy      *uuid.UUID         `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time         `json:"approved_at,omitempty"`
	RejectionReason *string            `json:"rejection_reason,omitempty"`
	SettledAt       *time.Time         `json:"settled_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

func toPayoutDTO(payout *models.Payout) *PayoutDTO {
	return &PayoutDTO{
		ID:              payout.ID,
		SellerID:        payout.SellerID,
		OrderID:         payout.OrderID,
		AmountCents:     payout.AmountCents,
		Currency:        payout.Currency,
		Status:          payout.Status,
		ApprovedBy:      payout.ApprovedBy,
		ApprovedAt:      payout.ApprovedAt,
		RejectionReason: payout.RejectionReason,
		SettledAt:       payout.SettledAt,
		CreatedAt:       payout.CreatedAt,
	}
}
