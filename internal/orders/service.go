package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/internal/cart"
	"github.com/mvalderas/tradepost-backend/internal/listings"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/outbox"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PayoutAccruer records seller-owed amounts when an order completes.
type PayoutAccruer interface {
	Accrue(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

// Service defines the order lifecycle operations.
type Service interface {
	CreateOrder(ctx context.Context, buyerID uuid.UUID) (*OrderDTO, error)
	GetOrder(ctx context.Context, userID uuid.UUID, role enums.UserRole, orderID uuid.UUID) (*OrderDTO, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error)
	CancelOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*OrderDTO, error)
	ShipOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*OrderDTO, error)
	CompleteOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*OrderDTO, error)
}

// OrderEvent is the outbox payload for order lifecycle events.
type OrderEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	Status     string    `json:"status"`
	TotalCents int       `json:"total_cents"`
	Currency   string    `json:"currency"`
}

type service struct {
	repo     *Repository
	carts    *cart.Repository
	listings *listings.Repository
	tx       txRunner
	outbox   outboxPublisher
	payouts  PayoutAccruer
	currency string
}

// NewService builds an order service with the required dependencies.
func NewService(repo *Repository, carts *cart.Repository, listingRepo *listings.Repository, tx txRunner, outboxSvc outboxPublisher, payouts PayoutAccruer, currency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if listingRepo == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if payouts == nil {
		return nil, fmt.Errorf("payout accruer required")
	}
	if currency == "" {
		currency = "usd"
	}
	return &service{
		repo:     repo,
		carts:    carts,
		listings: listingRepo,
		tx:       tx,
		outbox:   outboxSvc,
		payouts:  payouts,
		currency: currency,
	}, nil
}

// CreateOrder converts the buyer's cart into a PENDING order inside one
// transaction: every line is revalidated, stock is decremented with the
// conditional update, prices are snapshotted, and the cart is cleared.
// Any guard failure rolls the whole thing back.
func (s *service) CreateOrder(ctx context.Context, buyerID uuid.UUID) (*OrderDTO, error) {
	buyerCart, err := s.carts.FindCartByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if len(buyerCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	var created *models.Order
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ids := make([]uuid.UUID, 0, len(buyerCart.Items))
		for _, item := range buyerCart.Items {
			ids = append(ids, item.ListingID)
		}
		listingsByID, err := s.listings.WithTx(tx).FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading listings")
		}

		order := &models.Order{
			BuyerID:  buyerID,
			Status:   enums.OrderStatusPending,
			Currency: s.currency,
		}
		for _, item := range buyerCart.Items {
			listing, found := listingsByID[item.ListingID]
			if !found || listing.Status != enums.ListingStatusActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart contains an unavailable listing").
					WithDetails(map[string]any{"listing_id": item.ListingID})
			}
			if err := s.listings.Reserve(ctx, tx, item.ListingID, item.Quantity); err != nil {
				return err
			}
			order.Items = append(order.Items, models.OrderItem{
				ListingID:            item.ListingID,
				SellerID:             listing.SellerID,
				Title:                listing.Title,
				Quantity:             item.Quantity,
				PriceAtPurchaseCents: listing.PriceCents,
			})
			order.TotalCents += listing.PriceCents * item.Quantity
		}

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}
		if err := s.carts.WithTx(tx).ClearItems(ctx, buyerCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
		}
		if err := s.outbox.Emit(ctx, tx, s.orderEvent(enums.EventOrderCreated, order, buyerID)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emitting order event")
		}
		created = order
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return toOrderDTO(created), nil
}

func (s *service) GetOrder(ctx context.Context, userID uuid.UUID, role enums.UserRole, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canViewOrder(order, userID, role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return toOrderDTO(order), nil
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	rows, total, err := s.repo.ListByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return pagination.NewPage(toOrderDTOs(rows), params, total), nil
}

func (s *service) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	rows, total, err := s.repo.ListBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing seller orders")
	}
	return pagination.NewPage(toOrderDTOs(rows), params, total), nil
}

// CancelOrder lets the buyer back out of a still-PENDING order. Reserved
// stock goes back to the listings.
func (s *service) CancelOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.TransitionStatus(ctx, tx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling order")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled")
		}
		for _, item := range order.Items {
			if err := s.listings.Restore(ctx, tx, item.ListingID, item.Quantity); err != nil {
				return err
			}
		}
		order.Status = enums.OrderStatusCancelled
		return s.outbox.Emit(ctx, tx, s.orderEvent(enums.EventOrderCancelled, order, buyerID))
	})
	if txErr != nil {
		return nil, txErr
	}
	return toOrderDTO(order), nil
}

func (s *service) ShipOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*OrderDTO, error) {
	return s.sellerTransition(ctx, sellerID, orderID, enums.OrderStatusPaid, enums.OrderStatusShipped, nil)
}

// CompleteOrder marks a shipped order complete and accrues seller payouts
// in the same transaction.
func (s *service) CompleteOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*OrderDTO, error) {
	return s.sellerTransition(ctx, sellerID, orderID, enums.OrderStatusShipped, enums.OrderStatusCompleted, func(tx *gorm.DB, order *models.Order) error {
		return s.payouts.Accrue(ctx, tx, order)
	})
}

func (s *service) sellerTransition(ctx context.Context, sellerID, orderID uuid.UUID, from, to enums.OrderStatus, after func(tx *gorm.DB, order *models.Order) error) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !orderHasSeller(order, sellerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order has no items from this seller")
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.TransitionStatus(ctx, tx, order.ID, from, to)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transitioning order")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order must be %s to become %s", from, to))
		}
		order.Status = to
		if after != nil {
			return after(tx, order)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return toOrderDTO(order), nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) orderEvent(eventType enums.OutboxEventType, order *models.Order, actorID uuid.UUID) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: actorID},
		Data: OrderEvent{
			OrderID:    order.ID,
			BuyerID:    order.BuyerID,
			Status:     order.Status.String(),
			TotalCents: order.TotalCents,
			Currency:   order.Currency,
		},
		Version:    1,
		OccurredAt: time.Now(),
	}
}

func canViewOrder(order *models.Order, userID uuid.UUID, role enums.UserRole) bool {
	if role == enums.UserRoleAdmin {
		return true
	}
	if order.BuyerID == userID {
		return true
	}
	return orderHasSeller(order, userID)
}

func orderHasSeller(order *models.Order, sellerID uuid.UUID) bool {
	for _, item := range order.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}
