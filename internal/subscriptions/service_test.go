package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/internal/payments"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/logger"
)

type stubGateway struct {
	created   []string
	cancelled []string
}

func (s *stubGateway) Name() enums.PaymentGateway { return enums.PaymentGatewayStripe }

func (s *stubGateway) CreateCustomer(context.Context, payments.CustomerInput) (string, error) {
	return "cus_stub", nil
}

func (s *stubGateway) CreatePaymentIntent(context.Context, payments.IntentInput) (*payments.Intent, error) {
	return &payments.Intent{ID: "pi_stub"}, nil
}

func (s *stubGateway) Refund(context.Context, string, *int) (string, error) {
	return "re_stub", nil
}

func (s *stubGateway) CreateSubscription(_ context.Context, _, priceID string) (string, error) {
	id := "sub_" + uuid.NewString()[:8]
	s.created = append(s.created, id)
	return id, nil
}

func (s *stubGateway) CancelSubscription(_ context.Context, id string) error {
	s.cancelled = append(s.cancelled, id)
	return nil
}

type stubCustomers struct{}

func (stubCustomers) GetOrCreateCustomer(_ context.Context, userID uuid.UUID) (*payments.CustomerDTO, error) {
	return &payments.CustomerDTO{
		UserID:            userID,
		Gateway:           enums.PaymentGatewayStripe.String(),
		GatewayCustomerID: "cus_stub",
	}, nil
}

type subsTestEnv struct {
	db      *gorm.DB
	svc     Service
	gateway *stubGateway
}

func newTestEnv(t *testing.T) *subsTestEnv {
	t.Helper()

	dsn := "file:subs_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.BillingPlan{}, &models.Subscription{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	gw := &stubGateway{}
	svc, err := NewService(NewRepository(db), gw, stubCustomers{}, logger.New(logger.Options{ServiceName: "subs-test"}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &subsTestEnv{db: db, svc: svc, gateway: gw}
}

func (e *subsTestEnv) seedPlan(t *testing.T, code string, interval enums.BillingInterval) *models.BillingPlan {
	t.Helper()
	plan := &models.BillingPlan{
		Code:           code,
		Name:           "Plan " + code,
		PriceCents:     2900,
		Interval:       interval,
		GatewayPriceID: "price_" + code,
		Active:         true,
	}
	if err := e.db.Create(plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan
}

func TestCreateSubscriptionSetsNextBillingDate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	plan := env.seedPlan(t, "starter", enums.BillingIntervalMonth)
	user := uuid.New()

	before := time.Now().AddDate(0, 1, 0).Add(-time.Minute)
	dto, err := env.svc.CreateSubscription(ctx, user, plan.ID)
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	after := time.Now().AddDate(0, 1, 0).Add(time.Minute)

	if dto.Status != enums.SubscriptionStatusActive.String() {
		t.Fatalf("expected active, got %s", dto.Status)
	}
	if dto.NextBillingDate.Before(before) || dto.NextBillingDate.After(after) {
		t.Fatalf("next billing date out of range: %v", dto.NextBillingDate)
	}
	if len(env.gateway.created) != 1 {
		t.Fatalf("expected one gateway subscription, got %d", len(env.gateway.created))
	}
}

func TestCreateSubscriptionCancelsPriorActive(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	starter := env.seedPlan(t, "starter", enums.BillingIntervalMonth)
	pro := env.seedPlan(t, "pro", enums.BillingIntervalYear)
	user := uuid.New()

	if _, err := env.svc.CreateSubscription(ctx, user, starter.ID); err != nil {
		t.Fatalf("subscribe starter: %v", err)
	}
	dto, err := env.svc.CreateSubscription(ctx, user, pro.ID)
	if err != nil {
		t.Fatalf("subscribe pro: %v", err)
	}
	if dto.PlanID != pro.ID {
		t.Fatalf("expected pro plan, got %s", dto.PlanID)
	}
	if len(env.gateway.cancelled) != 1 {
		t.Fatalf("prior gateway subscription must be cancelled, got %d", len(env.gateway.cancelled))
	}

	var count int64
	if err := env.db.Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", user, enums.SubscriptionStatusActive).
		Count(&count).Error; err != nil {
		t.Fatalf("count active: %v", err)
	}
	if count != 1 {
		t.Fatalf("exactly one active subscription allowed, got %d", count)
	}
}

func TestCreateSubscriptionSamePlanConflicts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	plan := env.seedPlan(t, "starter", enums.BillingIntervalMonth)
	user := uuid.New()

	if _, err := env.svc.CreateSubscription(ctx, user, plan.ID); err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	_, err := env.svc.CreateSubscription(ctx, user, plan.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestResubscribeReactivatesRow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	plan := env.seedPlan(t, "starter", enums.BillingIntervalMonth)
	user := uuid.New()

	if _, err := env.svc.CreateSubscription(ctx, user, plan.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := env.svc.CancelSubscription(ctx, user); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	dto, err := env.svc.CreateSubscription(ctx, user, plan.ID)
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if dto.Status != enums.SubscriptionStatusActive.String() || dto.CancelledAt != nil {
		t.Fatalf("expected reactivated subscription, got %+v", dto)
	}

	var count int64
	if err := env.db.Model(&models.Subscription{}).Where("user_id = ?", user).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("resubscribe must reuse the row, got %d rows", count)
	}
}

func TestCancelWithoutActiveIsNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.svc.CancelSubscription(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestSyncFromGatewayAdvancesPeriod(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	plan := env.seedPlan(t, "starter", enums.BillingIntervalMonth)
	user := uuid.New()

	if _, err := env.svc.CreateSubscription(ctx, user, plan.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var sub models.Subscription
	if err := env.db.First(&sub, "user_id = ?", user).Error; err != nil {
		t.Fatalf("load sub: %v", err)
	}

	periodEnd := time.Now().AddDate(0, 2, 0)
	if err := env.svc.SyncFromGateway(ctx, nil, sub.GatewaySubscriptionID, true, periodEnd); err != nil {
		t.Fatalf("sync paid: %v", err)
	}
	if err := env.db.First(&sub, "user_id = ?", user).Error; err != nil {
		t.Fatalf("reload sub: %v", err)
	}
	if !sub.NextBillingDate.Equal(periodEnd) && sub.NextBillingDate.Unix() != periodEnd.Unix() {
		t.Fatalf("expected next billing %v, got %v", periodEnd, sub.NextBillingDate)
	}

	if err := env.svc.SyncFromGateway(ctx, nil, sub.GatewaySubscriptionID, false, time.Time{}); err != nil {
		t.Fatalf("sync failed invoice: %v", err)
	}
	if err := env.db.First(&sub, "user_id = ?", user).Error; err != nil {
		t.Fatalf("reload sub: %v", err)
	}
	if sub.Status != enums.SubscriptionStatusInactive {
		t.Fatalf("expected inactive after failed invoice, got %s", sub.Status)
	}

	// unknown gateway id is swallowed
	if err := env.svc.SyncFromGateway(ctx, nil, "sub_unknown", true, periodEnd); err != nil {
		t.Fatalf("unknown gateway id must be dropped, got %v", err)
	}
}
