package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/internal/payments"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/logger"
)

type customerProvider interface {
	GetOrCreateCustomer(ctx context.Context, userID uuid.UUID) (*payments.CustomerDTO, error)
}

// Service manages recurring billing plans for sellers.
type Service interface {
	ListPlans(ctx context.Context) ([]PlanDTO, error)
	CreateSubscription(ctx context.Context, userID, planID uuid.UUID) (*SubscriptionDTO, error)
	CancelSubscription(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error)
	GetCurrent(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error)
	SyncFromGateway(ctx context.Context, tx *gorm.DB, gatewaySubscriptionID string, paid bool, periodEnd time.Time) error
}

type service struct {
	repo      *Repository
	gateway   payments.Gateway
	customers customerProvider
	logg      *logger.Logger
}

// NewService constructs the subscription service.
func NewService(repo *Repository, gateway payments.Gateway, customers customerProvider, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, gateway: gateway, customers: customers, logg: logg}, nil
}

func (s *service) ListPlans(ctx context.Context) ([]PlanDTO, error) {
	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing plans")
	}
	return toPlanDTOs(plans), nil
}

// CreateSubscription switches the user onto the plan: any prior ACTIVE
// subscription is cancelled at the gateway and locally before the new
// gateway billing starts.
func (s *service) CreateSubscription(ctx context.Context, userID, planID uuid.UUID) (*SubscriptionDTO, error) {
	plan, err := s.repo.FindPlanByID(ctx, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "billing plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading plan")
	}

	if prior, err := s.repo.FindActiveByUser(ctx, userID); err == nil {
		if prior.PlanID == planID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "already subscribed to this plan")
		}
		if err := s.cancelLocally(ctx, prior); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading active subscription")
	}

	cust, err := s.customers.GetOrCreateCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}
	gatewaySubID, err := s.gateway.CreateSubscription(ctx, cust.GatewayCustomerID, plan.GatewayPriceID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sub, err := s.repo.FindByUserAndPlan(ctx, userID, planID)
	switch {
	case err == nil:
		// Re-subscribing to a previously held plan reactivates its row.
		sub.Status = enums.SubscriptionStatusActive
		sub.GatewaySubscriptionID = gatewaySubID
		sub.NextBillingDate = plan.Interval.Advance(now)
		sub.CancelledAt = nil
		if err := s.repo.Save(ctx, sub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reactivating subscription")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = &models.Subscription{
			UserID:                userID,
			PlanID:                planID,
			Status:                enums.SubscriptionStatusActive,
			GatewaySubscriptionID: gatewaySubID,
			NextBillingDate:       plan.Interval.Advance(now),
		}
		if err := s.repo.Create(ctx, sub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting subscription")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}

	return toSubscriptionDTO(sub, plan), nil
}

// CancelSubscription ends the user's ACTIVE subscription, gateway first.
func (s *service) CancelSubscription(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}
	if err := s.cancelLocally(ctx, sub); err != nil {
		return nil, err
	}
	return toSubscriptionDTO(sub, nil), nil
}

func (s *service) GetCurrent(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}
	plan, err := s.repo.FindPlanByID(ctx, sub.PlanID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading plan")
	}
	return toSubscriptionDTO(sub, plan), nil
}

// SyncFromGateway applies invoice outcomes: a paid invoice advances the
// next billing date, a failed one marks the subscription inactive.
func (s *service) SyncFromGateway(ctx context.Context, tx *gorm.DB, gatewaySubscriptionID string, paid bool, periodEnd time.Time) error {
	repo := s.repo.WithTx(tx)
	sub, err := repo.FindByGatewayID(ctx, gatewaySubscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, fmt.Sprintf("no local subscription for gateway id %s, invoice event dropped", gatewaySubscriptionID))
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}
	if sub.Status == enums.SubscriptionStatusCancelled {
		s.logg.Warn(ctx, "invoice event for cancelled subscription dropped")
		return nil
	}

	if paid {
		sub.Status = enums.SubscriptionStatusActive
		if !periodEnd.IsZero() {
			sub.NextBillingDate = periodEnd
		}
	} else {
		sub.Status = enums.SubscriptionStatusInactive
	}
	if err := repo.Save(ctx, sub); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "syncing subscription")
	}
	return nil
}

func (s *service) cancelLocally(ctx context.Context, sub *models.Subscription) error {
	if err := s.gateway.CancelSubscription(ctx, sub.GatewaySubscriptionID); err != nil {
		return err
	}
	now := time.Now()
	sub.Status = enums.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	if err := s.repo.Save(ctx, sub); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling subscription")
	}
	return nil
}
