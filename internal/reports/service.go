package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/mvalderas/tradepost-backend/pkg/db"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

type listingLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// Service manages listing reports and the admin review queue.
type Service interface {
	FlagListing(ctx context.Context, reporterID uuid.UUID, input FlagListingInput) (*ReportDTO, error)
	ListReports(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Page[ReportDTO], error)
	ResolveReport(ctx context.Context, reportID uuid.UUID) (*ReportDTO, error)
}

type service struct {
	repo     *Repository
	listings listingLoader
}

// NewService wires the reports service.
func NewService(repo *Repository, listingRepo listingLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if listingRepo == nil {
		return nil, fmt.Errorf("listing loader required")
	}
	return &service{repo: repo, listings: listingRepo}, nil
}

// FlagListingInput carries the fields for a new report.
type FlagListingInput struct {
	ListingID uuid.UUID          `json:"listing_id" validate:"required"`
	Reason    enums.ReportReason `json:"reason" validate:"required"`
	Note      string             `json:"note" validate:"max=2000"`
}

func (s *service) FlagListing(ctx context.Context, reporterID uuid.UUID, input FlagListingInput) (*ReportDTO, error) {
	if reporterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reporter id required")
	}
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid report reason")
	}

	listing, err := s.listings.FindByID(ctx, input.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading listing")
	}
	if listing.SellerID == reporterID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sellers cannot report their own listings")
	}

	report := models.Report{
		ListingID:  listing.ID,
		ReporterID: reporterID,
		Reason:     input.Reason,
	}
	if note := strings.TrimSpace(input.Note); note != "" {
		report.Note = &note
	}
	if err := s.repo.Create(ctx, &report); err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "you have already reported this listing")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating report")
	}
	return toReportDTO(&report), nil
}

func (s *service) ListReports(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Page[ReportDTO], error) {
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing reports")
	}
	items := make([]ReportDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *toReportDTO(&rows[i]))
	}
	return pagination.NewPage(items, params, total), nil
}

func (s *service) ResolveReport(ctx context.Context, reportID uuid.UUID) (*ReportDTO, error) {
	if reportID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "report id required")
	}

	report, err := s.repo.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading report")
	}

	now := time.Now().UTC()
	resolved, err := s.repo.Resolve(ctx, report.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving report")
	}
	if !resolved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "report is already resolved")
	}
	report.ResolvedAt = &now
	return toReportDTO(report), nil
}
