package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

func setupOrdersRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, buyerID, sellerID uuid.UUID, status enums.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		BuyerID:    buyerID,
		Status:     status,
		TotalCents: 1000,
		Currency:   "usd",
		Items: []models.OrderItem{
			{
				ListingID:            uuid.New(),
				SellerID:             sellerID,
				Title:                "widget",
				Quantity:             1,
				PriceAtPurchaseCents: 1000,
			},
		},
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestTransitionStatusRequiresCurrentState(t *testing.T) {
	db := setupOrdersRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusPaid, time.Now())

	moved, err := repo.TransitionStatus(ctx, nil, order.ID, enums.OrderStatusPaid, enums.OrderStatusShipped)
	require.NoError(t, err)
	assert.True(t, moved)

	// Replaying the same transition finds no matching row.
	moved, err = repo.TransitionStatus(ctx, nil, order.ID, enums.OrderStatusPaid, enums.OrderStatusShipped)
	require.NoError(t, err)
	assert.False(t, moved)

	var got models.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusShipped, got.Status)
}

func TestMarkPaidStampsTimestampOnce(t *testing.T) {
	db := setupOrdersRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusPending, time.Now())

	paidAt := time.Now().UTC().Truncate(time.Second)
	moved, err := repo.MarkPaid(ctx, nil, order.ID, paidAt)
	require.NoError(t, err)
	assert.True(t, moved)

	var got models.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
	assert.WithinDuration(t, paidAt, *got.PaidAt, time.Second)

	moved, err = repo.MarkPaid(ctx, nil, order.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, moved, "already-paid order must not transition again")
}

func TestListBySellerSpansBuyers(t *testing.T) {
	db := setupOrdersRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seller := uuid.New()
	base := time.Now().Add(-time.Hour)
	older := seedOrder(t, db, uuid.New(), seller, enums.OrderStatusPaid, base)
	newer := seedOrder(t, db, uuid.New(), seller, enums.OrderStatusPending, base.Add(time.Minute))
	seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusPaid, base.Add(2*time.Minute))

	rows, total, err := repo.ListBySeller(ctx, seller, pagination.Params{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
	require.Len(t, rows[0].Items, 1)
	assert.Equal(t, seller, rows[0].Items[0].SellerID)
}
