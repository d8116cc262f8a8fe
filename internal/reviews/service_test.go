package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reviews_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Review{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

type purchase struct {
	buyerID uuid.UUID
	item    *models.OrderItem
}

func seedPurchase(t *testing.T, db *gorm.DB, status enums.OrderStatus) purchase {
	t.Helper()
	order := &models.Order{
		BuyerID:    uuid.New(),
		Status:     status,
		TotalCents: 2000,
		Currency:   "usd",
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	item := &models.OrderItem{
		OrderID:              order.ID,
		ListingID:            uuid.New(),
		SellerID:             uuid.New(),
		Title:                "Purchased item",
		Quantity:             2,
		PriceAtPurchaseCents: 1000,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("create order item: %v", err)
	}
	return purchase{buyerID: order.BuyerID, item: item}
}

func TestCreateReviewRequiresPaidOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	pending := seedPurchase(t, db, enums.OrderStatusPending)
	_, err := svc.CreateReview(ctx, pending.buyerID, CreateReviewInput{OrderItemID: pending.item.ID, Rating: 5})
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for unpaid order, got %v", got)
	}

	paid := seedPurchase(t, db, enums.OrderStatusPaid)
	dto, err := svc.CreateReview(ctx, paid.buyerID, CreateReviewInput{OrderItemID: paid.item.ID, Rating: 4, Comment: "solid"})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if dto.ListingID != paid.item.ListingID || dto.Rating != 4 || dto.Comment == nil {
		t.Fatalf("unexpected review: %+v", dto)
	}
}

func TestCreateReviewOnlyByBuyer(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	paid := seedPurchase(t, db, enums.OrderStatusCompleted)
	_, err := svc.CreateReview(context.Background(), uuid.New(), CreateReviewInput{OrderItemID: paid.item.ID, Rating: 5})
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-buyer, got %v", got)
	}
}

func TestCreateReviewRejectsDuplicatesAndBadRatings(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	paid := seedPurchase(t, db, enums.OrderStatusPaid)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.CreateReview(ctx, paid.buyerID, CreateReviewInput{OrderItemID: paid.item.ID, Rating: rating})
		if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for rating %d, got %v", rating, got)
		}
	}

	if _, err := svc.CreateReview(ctx, paid.buyerID, CreateReviewInput{OrderItemID: paid.item.ID, Rating: 5}); err != nil {
		t.Fatalf("create review: %v", err)
	}
	_, err := svc.CreateReview(ctx, paid.buyerID, CreateReviewInput{OrderItemID: paid.item.ID, Rating: 3})
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for second review of same item, got %v", got)
	}
}

func TestListListingReviewsAggregatesRatings(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	listingID := uuid.New()

	for _, rating := range []int{5, 3} {
		p := seedPurchase(t, db, enums.OrderStatusPaid)
		p.item.ListingID = listingID
		if err := db.Save(p.item).Error; err != nil {
			t.Fatalf("retarget item: %v", err)
		}
		if _, err := svc.CreateReview(ctx, p.buyerID, CreateReviewInput{OrderItemID: p.item.ID, Rating: rating}); err != nil {
			t.Fatalf("create review: %v", err)
		}
	}

	result, err := svc.ListListingReviews(ctx, listingID, pagination.Params{})
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if result.Summary.ReviewCount != 2 {
		t.Fatalf("expected 2 reviews, got %d", result.Summary.ReviewCount)
	}
	if result.Summary.AverageRating != 4 {
		t.Fatalf("expected average 4, got %v", result.Summary.AverageRating)
	}
	if len(result.Reviews.Items) != 2 {
		t.Fatalf("expected 2 review items, got %d", len(result.Reviews.Items))
	}
}
