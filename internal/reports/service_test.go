package reports

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
	dsn := "file:reports_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Listing{}, &models.Report{}); err != nil {
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

func seedListing(t *testing.T, db *gorm.DB) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		SellerID:     uuid.New(),
		Title:        "Suspicious item",
		PriceCents:   1000,
		AvailableQty: 1,
		Status:       enums.ListingStatusActive,
	}
	if err := db.Create(listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return listing
}

func TestFlagListingCreatesOpenReport(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	listing := seedListing(t, db)

	dto, err := svc.FlagListing(context.Background(), uuid.New(), FlagListingInput{
		ListingID: listing.ID,
		Reason:    enums.ReportReasonCounterfeit,
		Note:      "logo is fake",
	})
	if err != nil {
		t.Fatalf("flag listing: %v", err)
	}
	if dto.Reason != enums.ReportReasonCounterfeit || dto.Note == nil || dto.ResolvedAt != nil {
		t.Fatalf("unexpected report: %+v", dto)
	}
}

func TestFlagListingRejectsDuplicatesPerReporter(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	listing := seedListing(t, db)
	reporterID := uuid.New()

	input := FlagListingInput{ListingID: listing.ID, Reason: enums.ReportReasonSpam}
	if _, err := svc.FlagListing(ctx, reporterID, input); err != nil {
		t.Fatalf("flag listing: %v", err)
	}

	_, err := svc.FlagListing(ctx, reporterID, input)
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for repeat report, got %v", got)
	}

	// A different reporter can still flag the same listing.
	if _, err := svc.FlagListing(ctx, uuid.New(), input); err != nil {
		t.Fatalf("second reporter: %v", err)
	}
}

func TestFlagListingValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	listing := seedListing(t, db)

	_, err := svc.FlagListing(ctx, uuid.New(), FlagListingInput{ListingID: uuid.New(), Reason: enums.ReportReasonSpam})
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown listing, got %v", got)
	}

	_, err = svc.FlagListing(ctx, uuid.New(), FlagListingInput{ListingID: listing.ID, Reason: enums.ReportReason("bogus")})
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad reason, got %v", got)
	}

	_, err = svc.FlagListing(ctx, listing.SellerID, FlagListingInput{ListingID: listing.ID, Reason: enums.ReportReasonSpam})
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for self-report, got %v", got)
	}
}

func TestListAndResolveReports(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	listing := seedListing(t, db)

	first, err := svc.FlagListing(ctx, uuid.New(), FlagListingInput{ListingID: listing.ID, Reason: enums.ReportReasonSpam})
	if err != nil {
		t.Fatalf("flag listing: %v", err)
	}
	if _, err := svc.FlagListing(ctx, uuid.New(), FlagListingInput{ListingID: listing.ID, Reason: enums.ReportReasonMisleading}); err != nil {
		t.Fatalf("flag listing: %v", err)
	}

	page, err := svc.ListReports(ctx, ListFilter{Unresolved: true}, pagination.Params{})
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 open reports, got %d", page.Total)
	}

	resolved, err := svc.ResolveReport(ctx, first.ID)
	if err != nil {
		t.Fatalf("resolve report: %v", err)
	}
	if resolved.ResolvedAt == nil {
		t.Fatal("expected resolved_at to be set")
	}

	_, err = svc.ResolveReport(ctx, first.ID)
	if got := pkgerrors.As(err).Code(); got != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for second resolve, got %v", got)
	}

	page, err = svc.ListReports(ctx, ListFilter{Unresolved: true}, pagination.Params{})
	if err != nil {
		t.Fatalf("list open reports: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected 1 open report after resolve, got %d", page.Total)
	}
}
