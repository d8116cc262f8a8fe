package users

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate users: %v", err)
	}
	return db
}

func TestFindByID(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	seeded := models.User{
		ID:    uuid.New(),
		Email: "seller@example.com",
		Name:  "Seller",
		Role:  enums.UserRoleSeller,
	}
	if err := db.Create(&seeded).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	found, err := repo.FindByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if found.Email != seeded.Email || found.Role != enums.UserRoleSeller {
		t.Fatalf("unexpected user %+v", found)
	}

	_, err = repo.FindByID(context.Background(), uuid.New())
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}
