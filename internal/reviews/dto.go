package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

// ReviewDTO is the API representation of a review.
type ReviewDTO struct {
	ID          uuid.UUID `json:"id"`
	OrderItemID uuid.UUID `json:"order_item_id"`
	ListingID   uuid.UUID `json:"listing_id"`
	ReviewerID  uuid.UUID `json:"reviewer_id"`
	Rating      int       `json:"rating"`
	Comment     *string   `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListingReviewsDTO bundles a listing's rating aggregate with a page of
// its reviews.
type ListingReviewsDTO struct {
	Summary RatingSummary              `json:"summary"`
	Reviews pagination.Page[ReviewDTO] `json:"reviews"`
}

func toReviewDTO(review *models.Review) *ReviewDTO {
	return &ReviewDTO{
		ID:          review.ID,
		OrderItemID: review.OrderItemID,
		ListingID:   review.ListingID,
		ReviewerID:  review.ReviewerID,
		Rating:      review.Rating,
		Comment:     review.Comment,
		CreatedAt:   review.CreatedAt,
	}
}
