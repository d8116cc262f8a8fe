package categories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/internal/listings"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:categories_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Listing{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), listings.NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func mustCreate(t *testing.T, svc Service, name, slug string, parentID *uuid.UUID) *CategoryDTO {
	t.Helper()
	dto, err := svc.CreateCategory(context.Background(), CreateCategoryInput{Name: name, Slug: slug, ParentID: parentID})
	if err != nil {
		t.Fatalf("create category %s: %v", slug, err)
	}
	return dto
}

func TestCreateCategoryValidatesParentAndSlug(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	missing := uuid.New()
	_, err := svc.CreateCategory(ctx, CreateCategoryInput{Name: "Tools", Slug: "tools", ParentID: &missing})
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for missing parent, got %v", got)
	}

	mustCreate(t, svc, "Tools", "tools", nil)
	_, err = svc.CreateCategory(ctx, CreateCategoryInput{Name: "Other Tools", Slug: "tools"})
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for duplicate slug, got %v", got)
	}
}

func TestGetTreeNestsChildrenUnderParents(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	root := mustCreate(t, svc, "Electronics", "electronics", nil)
	audio := mustCreate(t, svc, "Audio", "audio", &root.ID)
	mustCreate(t, svc, "Headphones", "headphones", &audio.ID)
	mustCreate(t, svc, "Garden", "garden", nil)

	tree, err := svc.GetTree(ctx)
	if err != nil {
		t.Fatalf("get tree: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(tree))
	}

	var electronics *CategoryNodeDTO
	for i := range tree {
		if tree[i].Slug == "electronics" {
			electronics = &tree[i]
		}
	}
	if electronics == nil {
		t.Fatal("expected electronics root")
	}
	if len(electronics.Children) != 1 || electronics.Children[0].Slug != "audio" {
		t.Fatalf("expected audio under electronics, got %+v", electronics.Children)
	}
	if len(electronics.Children[0].Children) != 1 || electronics.Children[0].Children[0].Slug != "headphones" {
		t.Fatalf("expected headphones under audio, got %+v", electronics.Children[0].Children)
	}
}

func TestListSubtreeListingsSpansDescendants(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	root := mustCreate(t, svc, "Electronics", "electronics", nil)
	audio := mustCreate(t, svc, "Audio", "audio", &root.ID)
	phones := mustCreate(t, svc, "Headphones", "headphones", &audio.ID)
	garden := mustCreate(t, svc, "Garden", "garden", nil)

	seedListing(t, db, root.ID, "Generic gadget", enums.ListingStatusActive)
	seedListing(t, db, phones.ID, "Closed-back cans", enums.ListingStatusActive)
	seedListing(t, db, phones.ID, "Draft earbuds", enums.ListingStatusDraft)
	seedListing(t, db, garden.ID, "Shovel", enums.ListingStatusActive)

	page, err := svc.ListSubtreeListings(ctx, root.ID, pagination.Params{})
	if err != nil {
		t.Fatalf("list subtree: %v", err)
	}
	// Active listings from the root and its grandchild, not the draft and
	// not the sibling tree.
	if page.Total != 2 {
		t.Fatalf("expected 2 listings in subtree, got %d", page.Total)
	}

	page, err = svc.ListSubtreeListings(ctx, audio.ID, pagination.Params{})
	if err != nil {
		t.Fatalf("list audio subtree: %v", err)
	}
	if page.Total != 1 || page.Items[0].Title != "Closed-back cans" {
		t.Fatalf("expected only the headphones listing, got %+v", page.Items)
	}

	_, err = svc.ListSubtreeListings(ctx, uuid.New(), pagination.Params{})
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown category, got %v", got)
	}
}

func TestExistsIgnoresNilID(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	ok, err := svc.Exists(ctx, uuid.Nil)
	if err != nil || ok {
		t.Fatalf("expected nil id to report absent, got ok=%v err=%v", ok, err)
	}

	root := mustCreate(t, svc, "Electronics", "electronics", nil)
	ok, err = svc.Exists(ctx, root.ID)
	if err != nil || !ok {
		t.Fatalf("expected category to exist, got ok=%v err=%v", ok, err)
	}
}

func seedListing(t *testing.T, db *gorm.DB, categoryID uuid.UUID, title string, status enums.ListingStatus) {
	t.Helper()
	listing := &models.Listing{
		SellerID:     uuid.New(),
		CategoryID:   &categoryID,
		Title:        title,
		PriceCents:   1000,
		AvailableQty: 1,
		Status:       status,
	}
	if err := db.Create(listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
}
