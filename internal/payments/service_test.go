package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
)

type stubGateway struct {
	customers int
	intents   int
	refunds   []struct {
		gatewayID string
		amount    *int
	}
	failRefund error
}

func (s *stubGateway) Name() enums.PaymentGateway { return enums.PaymentGatewayStripe }

func (s *stubGateway) CreateCustomer(context.Context, CustomerInput) (string, error) {
	s.customers++
	return "cus_" + uuid.NewString()[:8], nil
}

func (s *stubGateway) CreatePaymentIntent(_ context.Context, input IntentInput) (*Intent, error) {
	s.intents++
	return &Intent{
		ID:           "pi_" + uuid.NewString()[:8],
		ClientSecret: "secret",
		Status:       "requires_payment_method",
	}, nil
}

func (s *stubGateway) Refund(_ context.Context, gatewayID string, amount *int) (string, error) {
	if s.failRefund != nil {
		return "", s.failRefund
	}
	s.refunds = append(s.refunds, struct {
		gatewayID string
		amount    *int
	}{gatewayID, amount})
	return "re_" + uuid.NewString()[:8], nil
}

func (s *stubGateway) CreateSubscription(context.Context, string, string) (string, error) {
	return "sub_" + uuid.NewString()[:8], nil
}

func (s *stubGateway) CancelSubscription(context.Context, string) error { return nil }

type gormUserLoader struct{ db *gorm.DB }

func (l *gormUserLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := l.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type gormOrderLoader struct{ db *gorm.DB }

func (l *gormOrderLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := l.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

type paymentTestEnv struct {
	db      *gorm.DB
	svc     Service
	repo    *Repository
	gateway *stubGateway
}

func newTestEnv(t *testing.T) *paymentTestEnv {
	t.Helper()

	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentCustomer{},
		&models.PaymentTransaction{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewRepository(db)
	gw := &stubGateway{}
	svc, err := NewService(repo, gw, &gormUserLoader{db: db}, &gormOrderLoader{db: db})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &paymentTestEnv{db: db, svc: svc, repo: repo, gateway: gw}
}

func (e *paymentTestEnv) seedUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{
		Email: "buyer_" + uuid.NewString()[:8] + "@example.com",
		Name:  "Test Buyer",
		Role:  enums.UserRoleBuyer,
	}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *paymentTestEnv) seedOrder(t *testing.T, buyerID uuid.UUID, status enums.OrderStatus, totalCents int) *models.Order {
	t.Helper()
	order := &models.Order{
		BuyerID:    buyerID,
		Status:     status,
		TotalCents: totalCents,
		Currency:   "usd",
		Items: []models.OrderItem{
			{
				ListingID:            uuid.New(),
				SellerID:             uuid.New(),
				Title:                "Paid Item",
				Quantity:             1,
				PriceAtPurchaseCents: totalCents,
			},
		},
	}
	if err := e.db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestGetOrCreateCustomerIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)

	first, err := env.svc.GetOrCreateCustomer(ctx, user.ID)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := env.svc.GetOrCreateCustomer(ctx, user.ID)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.GatewayCustomerID != second.GatewayCustomerID {
		t.Fatalf("expected same gateway customer, got %s vs %s", first.GatewayCustomerID, second.GatewayCustomerID)
	}
	if env.gateway.customers != 1 {
		t.Fatalf("gateway customer must be created once, got %d", env.gateway.customers)
	}
}

func TestCreatePaymentIntentPersistsPendingTransaction(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	order := env.seedOrder(t, user.ID, enums.OrderStatusPending, 2000)

	dto, err := env.svc.CreatePaymentIntent(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if dto.AmountCents != 2000 || dto.Status != enums.PaymentStatusPending.String() {
		t.Fatalf("unexpected intent: %+v", dto)
	}

	txn, err := env.repo.FindTransactionByGatewayID(ctx, dto.GatewayID)
	if err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	if txn.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending transaction, got %s", txn.Status)
	}

	// The order itself must be untouched.
	var reloaded models.Order
	if err := env.db.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.Status != enums.OrderStatusPending {
		t.Fatalf("order status must stay pending, got %s", reloaded.Status)
	}
}

func TestCreatePaymentIntentRejectsNonPendingOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	order := env.seedOrder(t, user.ID, enums.OrderStatusPaid, 2000)

	_, err := env.svc.CreatePaymentIntent(ctx, user.ID, order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCreatePaymentIntentRejectsForeignBuyer(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	order := env.seedOrder(t, user.ID, enums.OrderStatusPending, 2000)

	_, err := env.svc.CreatePaymentIntent(ctx, uuid.New(), order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRefundRequiresCompletedTransaction(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	order := env.seedOrder(t, user.ID, enums.OrderStatusPending, 2000)

	dto, err := env.svc.CreatePaymentIntent(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	_, err = env.svc.RefundPayment(ctx, uuid.New(), enums.UserRoleAdmin, dto.TransactionID, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict refunding pending txn, got %v", err)
	}
}

func TestRefundValidatesAmount(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	order := env.seedOrder(t, user.ID, enums.OrderStatusPaid, 2000)

	txn := &models.PaymentTransaction{
		OrderID:              &order.ID,
		UserID:               user.ID,
		Gateway:              enums.PaymentGatewayStripe,
		GatewayTransactionID: "pi_completed",
		Status:               enums.PaymentStatusCompleted,
		AmountCents:          2000,
		Currency:             "usd",
	}
	if err := env.db.Create(txn).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	over := 3000
	_, err := env.svc.RefundPayment(ctx, uuid.New(), enums.UserRoleAdmin, txn.ID, &over)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for over-refund, got %v", err)
	}

	partial := 500
	if _, err := env.svc.RefundPayment(ctx, uuid.New(), enums.UserRoleAdmin, txn.ID, &partial); err != nil {
		t.Fatalf("partial refund: %v", err)
	}
	if len(env.gateway.refunds) != 1 || *env.gateway.refunds[0].amount != 500 {
		t.Fatalf("expected one partial gateway refund, got %+v", env.gateway.refunds)
	}
}

func TestTransitionStatusEnforcesStateMachine(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)

	txn := &models.PaymentTransaction{
		UserID:               user.ID,
		Gateway:              enums.PaymentGatewayStripe,
		GatewayTransactionID: "pi_machine",
		Status:               enums.PaymentStatusPending,
		AmountCents:          1000,
		Currency:             "usd",
	}
	if err := env.db.Create(txn).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	// refunded straight from pending is forbidden
	err := env.repo.TransitionStatus(ctx, nil, txn.ID, enums.PaymentStatusPending, enums.PaymentStatusRefunded, TransitionUpdates{})
	if err != ErrTransitionLost {
		t.Fatalf("expected transition lost, got %v", err)
	}

	if err := env.repo.TransitionStatus(ctx, nil, txn.ID, enums.PaymentStatusPending, enums.PaymentStatusCompleted, TransitionUpdates{}); err != nil {
		t.Fatalf("pending -> completed: %v", err)
	}

	// a second completed write loses the conditional update
	err = env.repo.TransitionStatus(ctx, nil, txn.ID, enums.PaymentStatusPending, enums.PaymentStatusCompleted, TransitionUpdates{})
	if err != ErrTransitionLost {
		t.Fatalf("expected transition lost on replay, got %v", err)
	}
}
