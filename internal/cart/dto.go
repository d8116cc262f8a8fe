package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// CartItemDTO is one cart line with the listing's current price.
type CartItemDTO struct {
	ListingID      uuid.UUID `json:"listing_id"`
	Title          string    `json:"title"`
	PriceCents     int       `json:"price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int       `json:"line_total_cents"`
	Available      bool      `json:"available"`
	AddedAt        time.Time `json:"added_at"`
}

// CartDTO is the cart with totals computed over active listings only.
type CartDTO struct {
	ID                  uuid.UUID     `json:"id"`
	BuyerID             uuid.UUID     `json:"buyer_id"`
	Items               []CartItemDTO `json:"items"`
	SubtotalCents       int           `json:"subtotal_cents"`
	CommissionCents     int           `json:"commission_cents"`
	TotalCents          int           `json:"total_cents"`
	HasUnavailableItems bool          `json:"has_unavailable_items"`
}

func emptyCartDTO(buyerID uuid.UUID) *CartDTO {
	return &CartDTO{
		BuyerID: buyerID,
		Items:   []CartItemDTO{},
	}
}

func buildCartDTO(cart *models.Cart, listingsByID map[uuid.UUID]models.Listing, rate decimal.Decimal) *CartDTO {
	dto := &CartDTO{
		ID:      cart.ID,
		BuyerID: cart.BuyerID,
		Items:   make([]CartItemDTO, 0, len(cart.Items)),
	}

	subtotal := 0
	for _, item := range cart.Items {
		listing, found := listingsByID[item.ListingID]
		available := found && listing.Status == enums.ListingStatusActive

		line := CartItemDTO{
			ListingID: item.ListingID,
			Quantity:  item.Quantity,
			Available: available,
			AddedAt:   item.CreatedAt,
		}
		if found {
			line.Title = listing.Title
			line.PriceCents = listing.PriceCents
		}
		if available {
			line.LineTotalCents = listing.PriceCents * item.Quantity
			subtotal += line.LineTotalCents
		} else {
			dto.HasUnavailableItems = true
		}
		dto.Items = append(dto.Items, line)
	}

	dto.SubtotalCents = subtotal
	dto.CommissionCents = int(rate.Mul(decimal.NewFromInt(int64(subtotal))).Round(0).IntPart())
	dto.TotalCents = dto.SubtotalCents + dto.CommissionCents
	return dto
}
