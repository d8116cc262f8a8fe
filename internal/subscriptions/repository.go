package subscriptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// Repository persists billing plans and subscriptions.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindPlanByID loads an active billing plan.
func (r *Repository) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).First(&plan, "id = ? AND active = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListPlans returns all active plans, cheapest first.
func (r *Repository) ListPlans(ctx context.Context) ([]models.BillingPlan, error) {
	var plans []models.BillingPlan
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("price_cents ASC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// FindActiveByUser returns the user's single ACTIVE subscription.
func (r *Repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		First(&sub, "user_id = ? AND status = ?", userID, enums.SubscriptionStatusActive).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByUserAndPlan loads the (user, plan) row regardless of status.
func (r *Repository) FindByUserAndPlan(ctx context.Context, userID, planID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		First(&sub, "user_id = ? AND plan_id = ?", userID, planID).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByGatewayID loads the subscription mirroring a gateway subscription.
func (r *Repository) FindByGatewayID(ctx context.Context, gatewaySubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		First(&sub, "gateway_subscription_id = ?", gatewaySubscriptionID).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// Create inserts a subscription row.
func (r *Repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// Save writes all subscription columns back.
func (r *Repository) Save(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}
