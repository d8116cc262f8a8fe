package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/internal/cart"
	"github.com/mvalderas/tradepost-backend/internal/listings"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/outbox"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

type dbTxRunner struct {
	db *gorm.DB
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type recordingPayouts struct {
	accrued []uuid.UUID
}

func (r *recordingPayouts) Accrue(_ context.Context, _ *gorm.DB, order *models.Order) error {
	r.accrued = append(r.accrued, order.ID)
	return nil
}

type orderTestEnv struct {
	db      *gorm.DB
	svc     Service
	carts   cart.Service
	outbox  *recordingOutbox
	payouts *recordingPayouts
}

func newTestEnv(t *testing.T) *orderTestEnv {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Listing{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ob := &recordingOutbox{}
	po := &recordingPayouts{}
	svc, err := NewService(
		NewRepository(db),
		cart.NewRepository(db),
		listings.NewRepository(db),
		&dbTxRunner{db: db},
		ob,
		po,
		"usd",
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &orderTestEnv{db: db, svc: svc, outbox: ob, payouts: po}
}

func (e *orderTestEnv) seedListing(t *testing.T, priceCents, qty int) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		SellerID:     uuid.New(),
		Title:        "Order Test Listing",
		PriceCents:   priceCents,
		AvailableQty: qty,
		Status:       enums.ListingStatusActive,
	}
	if err := e.db.Create(listing).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return listing
}

func (e *orderTestEnv) seedCart(t *testing.T, buyerID uuid.UUID, lines map[uuid.UUID]int) {
	t.Helper()
	buyerCart := &models.Cart{BuyerID: buyerID}
	if err := e.db.Create(buyerCart).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	for listingID, qty := range lines {
		item := &models.CartItem{CartID: buyerCart.ID, ListingID: listingID, Quantity: qty}
		if err := e.db.Create(item).Error; err != nil {
			t.Fatalf("seed cart item: %v", err)
		}
	}
}

func TestCreateOrderSnapshotsAndDecrements(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	listing := env.seedListing(t, 1000, 5)
	env.seedCart(t, buyer, map[uuid.UUID]int{listing.ID: 2})

	dto, err := env.svc.CreateOrder(ctx, buyer)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if dto.Status != enums.OrderStatusPending.String() {
		t.Fatalf("expected pending order, got %s", dto.Status)
	}
	if dto.TotalCents != 2000 {
		t.Fatalf("expected total 2000, got %d", dto.TotalCents)
	}
	if len(dto.Items) != 1 || dto.Items[0].PriceAtPurchaseCents != 1000 {
		t.Fatalf("unexpected items: %+v", dto.Items)
	}

	var reloaded models.Listing
	if err := env.db.First(&reloaded, "id = ?", listing.ID).Error; err != nil {
		t.Fatalf("reload listing: %v", err)
	}
	if reloaded.AvailableQty != 3 {
		t.Fatalf("expected available_qty 3, got %d", reloaded.AvailableQty)
	}

	var remaining int64
	if err := env.db.Model(&models.CartItem{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("cart must be cleared, %d items remain", remaining)
	}

	if len(env.outbox.events) != 1 || env.outbox.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected one order.created event, got %+v", env.outbox.events)
	}
}

func TestCreateOrderPriceSnapshotSurvivesListingEdit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	listing := env.seedListing(t, 1000, 5)
	env.seedCart(t, buyer, map[uuid.UUID]int{listing.ID: 1})

	dto, err := env.svc.CreateOrder(ctx, buyer)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := env.db.Model(&models.Listing{}).
		Where("id = ?", listing.ID).
		Update("price_cents", 9999).Error; err != nil {
		t.Fatalf("reprice listing: %v", err)
	}

	reloaded, err := env.svc.GetOrder(ctx, buyer, enums.UserRoleBuyer, dto.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if reloaded.Items[0].PriceAtPurchaseCents != 1000 {
		t.Fatalf("snapshot price must not change, got %d", reloaded.Items[0].PriceAtPurchaseCents)
	}
}

func TestCreateOrderOutOfStockLeavesNoPartialState(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	plenty := env.seedListing(t, 500, 10)
	scarce := env.seedListing(t, 500, 5)
	env.seedCart(t, buyer, map[uuid.UUID]int{plenty.ID: 2, scarce.ID: 6})

	_, err := env.svc.CreateOrder(ctx, buyer)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("expected out-of-stock, got %v", err)
	}

	var orderCount int64
	if err := env.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("no order may exist after rollback, got %d", orderCount)
	}

	for _, seeded := range []struct {
		id  uuid.UUID
		qty int
	}{{plenty.ID, 10}, {scarce.ID, 5}} {
		var reloaded models.Listing
		if err := env.db.First(&reloaded, "id = ?", seeded.id).Error; err != nil {
			t.Fatalf("reload listing: %v", err)
		}
		if reloaded.AvailableQty != seeded.qty {
			t.Fatalf("stock must be untouched after rollback, got %d want %d", reloaded.AvailableQty, seeded.qty)
		}
	}

	var itemCount int64
	if err := env.db.Model(&models.CartItem{}).Count(&itemCount).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if itemCount != 2 {
		t.Fatalf("cart must survive a failed order, got %d items", itemCount)
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.svc.CreateOrder(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	listing := env.seedListing(t, 1000, 5)
	env.seedCart(t, buyer, map[uuid.UUID]int{listing.ID: 2})

	dto, err := env.svc.CreateOrder(ctx, buyer)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	cancelled, err := env.svc.CancelOrder(ctx, buyer, dto.ID)
	if err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled.String() {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	var reloaded models.Listing
	if err := env.db.First(&reloaded, "id = ?", listing.ID).Error; err != nil {
		t.Fatalf("reload listing: %v", err)
	}
	if reloaded.AvailableQty != 5 {
		t.Fatalf("expected restored stock 5, got %d", reloaded.AvailableQty)
	}

	_, err = env.svc.CancelOrder(ctx, buyer, dto.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("second cancel must be a state conflict, got %v", err)
	}
}

func TestShipAndCompleteTransitions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	listing := env.seedListing(t, 1000, 5)
	env.seedCart(t, buyer, map[uuid.UUID]int{listing.ID: 1})

	dto, err := env.svc.CreateOrder(ctx, buyer)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// Shipping a pending order is out of order.
	_, err = env.svc.ShipOrder(ctx, listing.SellerID, dto.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict shipping pending order, got %v", err)
	}

	if err := env.db.Model(&models.Order{}).
		Where("id = ?", dto.ID).
		Update("status", enums.OrderStatusPaid).Error; err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	shipped, err := env.svc.ShipOrder(ctx, listing.SellerID, dto.ID)
	if err != nil {
		t.Fatalf("ship order: %v", err)
	}
	if shipped.Status != enums.OrderStatusShipped.String() {
		t.Fatalf("expected shipped, got %s", shipped.Status)
	}

	completed, err := env.svc.CompleteOrder(ctx, listing.SellerID, dto.ID)
	if err != nil {
		t.Fatalf("complete order: %v", err)
	}
	if completed.Status != enums.OrderStatusCompleted.String() {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if len(env.payouts.accrued) != 1 || env.payouts.accrued[0] != dto.ID {
		t.Fatalf("expected payout accrual for order, got %+v", env.payouts.accrued)
	}
}

func TestShipOrderForeignSeller(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	listing := env.seedListing(t, 1000, 5)
	env.seedCart(t, buyer, map[uuid.UUID]int{listing.ID: 1})

	dto, err := env.svc.CreateOrder(ctx, buyer)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	_, err = env.svc.ShipOrder(ctx, uuid.New(), dto.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListBuyerOrdersPaginates(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()

	for i := 0; i < 3; i++ {
		listing := env.seedListing(t, 100, 5)
		env.seedCart(t, buyer, map[uuid.UUID]int{listing.ID: 1})
		if _, err := env.svc.CreateOrder(ctx, buyer); err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
		if err := env.db.Where("buyer_id = ?", buyer).Delete(&models.Cart{}).Error; err != nil {
			t.Fatalf("reset cart: %v", err)
		}
	}

	page, err := env.svc.ListBuyerOrders(ctx, buyer, pagination.Params{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 {
		t.Fatalf("expected total 3 page of 2, got total=%d len=%d", page.Total, len(page.Items))
	}
}
