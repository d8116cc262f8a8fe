package notifications

import (
	"context"
	"testing"
	"time"

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
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("migrate notifications: %v", err)
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

func seedNotification(t *testing.T, svc Service, db *gorm.DB, userID uuid.UUID, title string) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.NotifyTx(context.Background(), tx, userID, enums.NotificationTypeOrderPaid, title, "message body")
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
}

func TestNotifyTxRollsBackWithTransaction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	userID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.NotifyTx(context.Background(), tx, userID, enums.NotificationTypeOrderPaid, "Order paid", "body"); err != nil {
			return err
		}
		return gorm.ErrInvalidData
	})
	if err == nil {
		t.Fatal("expected rolled back transaction to error")
	}

	var count int64
	if err := db.Model(&models.Notification{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no committed notifications, got %d", count)
	}
}

func TestNotifyTxRejectsInvalidType(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.NotifyTx(context.Background(), tx, uuid.New(), enums.NotificationType("bogus"), "title", "body")
	})
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", got)
	}
}

func TestListScopesToUserAndFiltersUnread(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	seedNotification(t, svc, db, alice, "first")
	seedNotification(t, svc, db, alice, "second")
	seedNotification(t, svc, db, bob, "other user")

	page, err := svc.List(ctx, alice, false, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("expected 2 notifications for alice, got total=%d items=%d", page.Total, len(page.Items))
	}

	if err := svc.MarkRead(ctx, alice, page.Items[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	unread, err := svc.List(ctx, alice, true, pagination.Params{})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if unread.Total != 1 {
		t.Fatalf("expected 1 unread notification, got %d", unread.Total)
	}
	if got, err := svc.UnreadCount(ctx, alice); err != nil || got != 1 {
		t.Fatalf("expected unread count 1, got %d (err %v)", got, err)
	}
}

func TestMarkReadIsScopedAndIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	seedNotification(t, svc, db, owner, "mine")

	var row models.Notification
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("load notification: %v", err)
	}

	// Another user cannot see or mark the row.
	err := svc.MarkRead(ctx, stranger, row.ID)
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign user, got %v", got)
	}

	if err := svc.MarkRead(ctx, owner, row.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	var marked models.Notification
	if err := db.First(&marked, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if marked.ReadAt == nil {
		t.Fatal("expected read_at to be set")
	}
	firstRead := *marked.ReadAt

	// Second mark is a found no-op that keeps the original timestamp.
	time.Sleep(5 * time.Millisecond)
	if err := svc.MarkRead(ctx, owner, row.ID); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if err := db.First(&marked, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !marked.ReadAt.Equal(firstRead) {
		t.Fatalf("expected read_at unchanged, got %v then %v", firstRead, marked.ReadAt)
	}
}

func TestMarkAllReadReturnsTouchedCount(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	seedNotification(t, svc, db, userID, "a")
	seedNotification(t, svc, db, userID, "b")
	seedNotification(t, svc, db, userID, "c")

	count, err := svc.MarkAllRead(ctx, userID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 rows marked, got %d", count)
	}

	count, err = svc.MarkAllRead(ctx, userID)
	if err != nil {
		t.Fatalf("second mark all read: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 rows marked on replay, got %d", count)
	}
}
