package listings

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
)

// ListingDTO represents the listing payload returned to clients.
type ListingDTO struct {
	ID           uuid.UUID  `json:"id"`
	SellerID     uuid.UUID  `json:"seller_id"`
	CategoryID   *uuid.UUID `json:"category_id,omitempty"`
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	PriceCents   int        `json:"price_cents"`
	AvailableQty int        `json:"available_qty"`
	Status       string     `json:"status"`
	ImageURL     *string    `json:"image_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toListingDTO(listing *models.Listing) *ListingDTO {
	if listing == nil {
		return nil
	}
	return &ListingDTO{
		ID:           listing.ID,
		SellerID:     listing.SellerID,
		CategoryID:   listing.CategoryID,
		Title:        listing.Title,
		Description:  listing.Description,
		PriceCents:   listing.PriceCents,
		AvailableQty: listing.AvailableQty,
		Status:       listing.Status.String(),
		ImageURL:     listing.ImageURL,
		CreatedAt:    listing.CreatedAt,
		UpdatedAt:    listing.UpdatedAt,
	}
}

// ToListingDTOs converts listing rows for responses assembled outside this
// package, such as category subtree browsing.
func ToListingDTOs(rows []models.Listing) []ListingDTO {
	return toListingDTOs(rows)
}

func toListingDTOs(rows []models.Listing) []ListingDTO {
	dtos := make([]ListingDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *toListingDTO(&rows[i]))
	}
	return dtos
}
