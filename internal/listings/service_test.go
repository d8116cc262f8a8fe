package listings

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

type stubCategoryChecker struct {
	exists bool
	err    error
}

func (s *stubCategoryChecker) Exists(context.Context, uuid.UUID) (bool, error) {
	return s.exists, s.err
}

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	db := newTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo, &stubCategoryChecker{exists: true})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo
}

func TestCreateListingValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateListingInput
	}{
		{"emptyTitle", CreateListingInput{Title: "  ", PriceCents: 100, AvailableQty: 1}},
		{"zeroPrice", CreateListingInput{Title: "ok", PriceCents: 0, AvailableQty: 1}},
		{"negativeQty", CreateListingInput{Title: "ok", PriceCents: 100, AvailableQty: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateListing(ctx, uuid.New(), tc.input)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateListingDefaultsToDraft(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	dto, err := svc.CreateListing(context.Background(), uuid.New(), CreateListingInput{
		Title:        "Vintage Lamp",
		PriceCents:   2500,
		AvailableQty: 3,
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if dto.Status != enums.ListingStatusDraft.String() {
		t.Fatalf("expected draft status, got %s", dto.Status)
	}
}

func TestUpdateListingRejectsForeignSeller(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	owner := uuid.New()
	dto, err := svc.CreateListing(ctx, owner, CreateListingInput{
		Title: "Bike", PriceCents: 100, AvailableQty: 1, Activate: true,
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}

	title := "Stolen Bike"
	_, err = svc.UpdateListing(ctx, uuid.New(), dto.ID, UpdateListingInput{Title: &title})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestRemoveListingHidesFromGet(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	seller := uuid.New()
	dto, err := svc.CreateListing(ctx, seller, CreateListingInput{
		Title: "Desk", PriceCents: 100, AvailableQty: 1, Activate: true,
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}

	if err := svc.RemoveListing(ctx, seller, dto.ID); err != nil {
		t.Fatalf("remove listing: %v", err)
	}

	_, err = svc.GetListing(ctx, dto.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found after removal, got %v", err)
	}
}

func TestListListingsDefaultsToActive(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	seller := uuid.New()
	if _, err := svc.CreateListing(ctx, seller, CreateListingInput{
		Title: "Active", PriceCents: 100, AvailableQty: 1, Activate: true,
	}); err != nil {
		t.Fatalf("create active: %v", err)
	}
	if _, err := svc.CreateListing(ctx, seller, CreateListingInput{
		Title: "Draft", PriceCents: 100, AvailableQty: 1,
	}); err != nil {
		t.Fatalf("create draft: %v", err)
	}

	page, err := svc.ListListings(ctx, ListListingsInput{Pagination: pagination.Params{Page: 1, PageSize: 10}})
	if err != nil {
		t.Fatalf("list listings: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Title != "Active" {
		t.Fatalf("expected only the active listing, got %+v", page.Items)
	}
}
