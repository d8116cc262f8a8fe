package subscriptions

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
)

// PlanDTO is a billing plan payload.
type PlanDTO struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	PriceCents   int       `json:"price_cents"`
	Interval     string    `json:"interval"`
	MonthlyPrice string    `json:"monthly_price"`
}

// SubscriptionDTO is the subscription payload returned to clients.
type SubscriptionDTO struct {
	ID              uuid.UUID  `json:"id"`
	PlanID          uuid.UUID  `json:"plan_id"`
	Status          string     `json:"status"`
	NextBillingDate time.Time  `json:"next_billing_date"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	Plan            *PlanDTO   `json:"plan,omitempty"`
}

func toPlanDTO(plan *models.BillingPlan) *PlanDTO {
	if plan == nil {
		return nil
	}
	return &PlanDTO{
		ID:           plan.ID,
		Code:         plan.Code,
		Name:         plan.Name,
		PriceCents:   plan.PriceCents,
		Interval:     plan.Interval.String(),
		MonthlyPrice: plan.MonthlyPrice().StringFixed(2),
	}
}

func toPlanDTOs(plans []models.BillingPlan) []PlanDTO {
	dtos := make([]PlanDTO, 0, len(plans))
	for i := range plans {
		dtos = append(dtos, *toPlanDTO(&plans[i]))
	}
	return dtos
}

func toSubscriptionDTO(sub *models.Subscription, plan *models.BillingPlan) *SubscriptionDTO {
	if sub == nil {
		return nil
	}
	return &SubscriptionDTO{
		ID:              sub.ID,
		PlanID:          sub.PlanID,
		Status:          sub.Status.String(),
		NextBillingDate: sub.NextBillingDate,
		CancelledAt:     sub.CancelledAt,
		Plan:            toPlanDTO(plan),
	}
}
