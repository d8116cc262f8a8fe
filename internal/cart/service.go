package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
)

// Service exposes buyer cart operations.
type Service interface {
	AddItem(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (*CartDTO, error)
	UpdateItem(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, buyerID, listingID uuid.UUID) (*CartDTO, error)
	GetCart(ctx context.Context, buyerID uuid.UUID) (*CartDTO, error)
}

type listingReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Listing, error)
}

type service struct {
	repo           *Repository
	listings       listingReader
	commissionRate decimal.Decimal
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, listings listingReader, commissionRate decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing reader required")
	}
	if commissionRate.IsNegative() {
		return nil, fmt.Errorf("commission rate cannot be negative")
	}
	return &service{repo: repo, listings: listings, commissionRate: commissionRate}, nil
}

func (s *service) AddItem(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	listing, err := s.activeListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.GetOrCreateCart(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	item, err := s.repo.FindItem(ctx, cart.ID, listingID)
	switch {
	case err == nil:
		// Re-adding merges quantities on the existing line.
		merged := item.Quantity + quantity
		if merged > listing.AvailableQty {
			return nil, insufficientStock(listingID, merged, listing.AvailableQty)
		}
		item.Quantity = merged
		if err := s.repo.SaveItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if quantity > listing.AvailableQty {
			return nil, insufficientStock(listingID, quantity, listing.AvailableQty)
		}
		fresh := &models.CartItem{CartID: cart.ID, ListingID: listingID, Quantity: quantity}
		if err := s.repo.CreateItem(ctx, fresh); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding cart item")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}

	return s.GetCart(ctx, buyerID)
}

func (s *service) UpdateItem(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive; remove the item instead")
	}

	cart, err := s.loadCart(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItem(ctx, cart.ID, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}

	listing, err := s.activeListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if quantity > listing.AvailableQty {
		return nil, insufficientStock(listingID, quantity, listing.AvailableQty)
	}

	item.Quantity = quantity
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
	}
	return s.GetCart(ctx, buyerID)
}

func (s *service) RemoveItem(ctx context.Context, buyerID, listingID uuid.UUID) (*CartDTO, error) {
	cart, err := s.loadCart(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	removed, err := s.repo.DeleteItem(ctx, cart.ID, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart item")
	}
	if removed == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	return s.GetCart(ctx, buyerID)
}

// GetCart totals the cart over currently-active listings. Lines whose
// listing went inactive since being added stay visible but contribute
// nothing to the totals.
func (s *service) GetCart(ctx context.Context, buyerID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindCartByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyCartDTO(buyerID), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ListingID)
	}
	byID, err := s.listings.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart listings")
	}

	return buildCartDTO(cart, byID, s.commissionRate), nil
}

func (s *service) loadCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindCartByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return cart, nil
}

func (s *service) activeListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading listing")
	}
	if listing.Status != enums.ListingStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing is not available")
	}
	return listing, nil
}

func insufficientStock(listingID uuid.UUID, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock for listing").
		WithDetails(map[string]any{
			"listing_id":    listingID,
			"requested_qty": requested,
			"available_qty": available,
		})
}
