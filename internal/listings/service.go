package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

// Service exposes seller listing management and public browsing.
type Service interface {
	CreateListing(ctx context.Context, sellerID uuid.UUID, input CreateListingInput) (*ListingDTO, error)
	UpdateListing(ctx context.Context, sellerID, listingID uuid.UUID, input UpdateListingInput) (*ListingDTO, error)
	RemoveListing(ctx context.Context, sellerID, listingID uuid.UUID) error
	GetListing(ctx context.Context, listingID uuid.UUID) (*ListingDTO, error)
	ListListings(ctx context.Context, input ListListingsInput) (*pagination.Page[ListingDTO], error)
}

// CreateListingInput holds the validated payload to create a listing.
type CreateListingInput struct {
	Title        string
	Description  *string
	PriceCents   int
	AvailableQty int
	CategoryID   *uuid.UUID
	ImageURL     *string
	Activate     bool
}

// UpdateListingInput holds optional mutation values for a listing.
type UpdateListingInput struct {
	Title        *string
	Description  *string
	PriceCents   *int
	AvailableQty *int
	CategoryID   *uuid.UUID
	ImageURL     *string
	Status       *enums.ListingStatus
}

// ListListingsInput filters public and seller listing queries.
type ListListingsInput struct {
	SellerID   *uuid.UUID
	CategoryID *uuid.UUID
	Status     *enums.ListingStatus
	Pagination pagination.Params
}

type categoryChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type service struct {
	repo       *Repository
	categories categoryChecker
}

// NewService constructs a listing service instance.
func NewService(repo *Repository, categories categoryChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category checker required")
	}
	return &service{repo: repo, categories: categories}, nil
}

func (s *service) CreateListing(ctx context.Context, sellerID uuid.UUID, input CreateListingInput) (*ListingDTO, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_cents must be positive")
	}
	if input.AvailableQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available_qty cannot be negative")
	}
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	status := enums.ListingStatusDraft
	if input.Activate {
		status = enums.ListingStatusActive
	}

	listing := &models.Listing{
		SellerID:     sellerID,
		CategoryID:   input.CategoryID,
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		PriceCents:   input.PriceCents,
		AvailableQty: input.AvailableQty,
		Status:       status,
		ImageURL:     input.ImageURL,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating listing")
	}
	return toListingDTO(listing), nil
}

func (s *service) UpdateListing(ctx context.Context, sellerID, listingID uuid.UUID, input UpdateListingInput) (*ListingDTO, error) {
	listing, err := s.loadOwned(ctx, sellerID, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status == enums.ListingStatusRemoved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "removed listings cannot be updated")
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		listing.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		listing.Description = input.Description
	}
	if input.PriceCents != nil {
		if *input.PriceCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_cents must be positive")
		}
		listing.PriceCents = *input.PriceCents
	}
	if input.AvailableQty != nil {
		if *input.AvailableQty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "available_qty cannot be negative")
		}
		listing.AvailableQty = *input.AvailableQty
	}
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
		listing.CategoryID = input.CategoryID
	}
	if input.ImageURL != nil {
		listing.ImageURL = input.ImageURL
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing status")
		}
		listing.Status = *input.Status
	}

	if err := s.repo.Save(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating listing")
	}
	return toListingDTO(listing), nil
}

// RemoveListing soft-removes the listing so historical orders keep their reference.
func (s *service) RemoveListing(ctx context.Context, sellerID, listingID uuid.UUID) error {
	listing, err := s.loadOwned(ctx, sellerID, listingID)
	if err != nil {
		return err
	}
	if listing.Status == enums.ListingStatusRemoved {
		return nil
	}
	listing.Status = enums.ListingStatusRemoved
	if err := s.repo.Save(ctx, listing); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing listing")
	}
	return nil
}

func (s *service) GetListing(ctx context.Context, listingID uuid.UUID) (*ListingDTO, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading listing")
	}
	if listing.Status == enums.ListingStatusRemoved {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return toListingDTO(listing), nil
}

func (s *service) ListListings(ctx context.Context, input ListListingsInput) (*pagination.Page[ListingDTO], error) {
	filter := ListFilter{
		SellerID:   input.SellerID,
		CategoryID: input.CategoryID,
		Status:     input.Status,
	}
	if filter.Status == nil && filter.SellerID == nil {
		// Public browse defaults to active listings only.
		active := enums.ListingStatusActive
		filter.Status = &active
	}

	rows, total, err := s.repo.List(ctx, filter, input.Pagination)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing listings")
	}
	return pagination.NewPage(toListingDTOs(rows), input.Pagination, total), nil
}

func (s *service) loadOwned(ctx context.Context, sellerID, listingID uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading listing")
	}
	if listing.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another seller")
	}
	return listing, nil
}

func (s *service) ensureCategory(ctx context.Context, id uuid.UUID) error {
	ok, err := s.categories.Exists(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking category")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
	}
	return nil
}
