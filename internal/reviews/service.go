package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/mvalderas/tradepost-backend/pkg/db"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

// Service manages buyer reviews of purchased items.
type Service interface {
	CreateReview(ctx context.Context, reviewerID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error)
	ListListingReviews(ctx context.Context, listingID uuid.UUID, params pagination.Params) (*ListingReviewsDTO, error)
}

type service struct {
	repo *Repository
}

// NewService wires the reviews service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	return &service{repo: repo}, nil
}

// CreateReviewInput carries the fields for a new review.
type CreateReviewInput struct {
	OrderItemID uuid.UUID `json:"order_item_id" validate:"required"`
	Rating      int       `json:"rating" validate:"required,min=1,max=5"`
	Comment     string    `json:"comment" validate:"max=2000"`
}

// reviewableOrderStatuses are the order states in which the purchase has
// actually been charged.
var reviewableOrderStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusPaid:      true,
	enums.OrderStatusShipped:   true,
	enums.OrderStatusCompleted: true,
}

func (s *service) CreateReview(ctx context.Context, reviewerID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error) {
	if reviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviewer id required")
	}
	if input.OrderItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order item id required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	item, order, err := s.repo.FindPurchase(ctx, input.OrderItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading purchase")
	}
	if order.BuyerID != reviewerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can review this purchase")
	}
	if !reviewableOrderStatuses[order.Status] {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been paid")
	}

	review := models.Review{
		OrderItemID: item.ID,
		ListingID:   item.ListingID,
		ReviewerID:  reviewerID,
		Rating:      input.Rating,
	}
	if comment := strings.TrimSpace(input.Comment); comment != "" {
		review.Comment = &comment
	}
	if err := s.repo.Create(ctx, &review); err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "this purchase has already been reviewed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating review")
	}
	return toReviewDTO(&review), nil
}

func (s *service) ListListingReviews(ctx context.Context, listingID uuid.UUID, params pagination.Params) (*ListingReviewsDTO, error) {
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}

	rows, total, err := s.repo.ListByListing(ctx, listingID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing reviews")
	}
	summary, err := s.repo.Summarize(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summarizing reviews")
	}

	items := make([]ReviewDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *toReviewDTO(&rows[i]))
	}
	return &ListingReviewsDTO{
		Summary: summary,
		Reviews: *pagination.NewPage(items, params, total),
	}, nil
}
