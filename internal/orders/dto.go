package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
)

// OrderItemDTO is one snapshot line of an order.
type OrderItemDTO struct {
	ID                   uuid.UUID `json:"id"`
	ListingID            uuid.UUID `json:"listing_id"`
	SellerID             uuid.UUID `json:"seller_id"`
	Title                string    `json:"title"`
	Quantity             int       `json:"quantity"`
	PriceAtPurchaseCents int       `json:"price_at_purchase_cents"`
}

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID         uuid.UUID      `json:"id"`
	BuyerID    uuid.UUID      `json:"buyer_id"`
	Status     string         `json:"status"`
	TotalCents int            `json:"total_cents"`
	Currency   string         `json:"currency"`
	Items      []OrderItemDTO `json:"items"`
	PaidAt     *time.Time     `json:"paid_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func toOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:                   item.ID,
			ListingID:            item.ListingID,
			SellerID:             item.SellerID,
			Title:                item.Title,
			Quantity:             item.Quantity,
			PriceAtPurchaseCents: item.PriceAtPurchaseCents,
		})
	}
	return &OrderDTO{
		ID:         order.ID,
		BuyerID:    order.BuyerID,
		Status:     order.Status.String(),
		TotalCents: order.TotalCents,
		Currency:   order.Currency,
		Items:      items,
		PaidAt:     order.PaidAt,
		CreatedAt:  order.CreatedAt,
	}
}

func toOrderDTOs(rows []models.Order) []OrderDTO {
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *toOrderDTO(&rows[i]))
	}
	return dtos
}
