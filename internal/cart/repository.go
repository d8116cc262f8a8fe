package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
)

// Repository persists carts and their line items.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// GetOrCreateCart returns the buyer's cart, creating it lazily. A concurrent
// create losing the unique race falls back to loading the winner's row.
func (r *Repository) GetOrCreateCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	cart, err := r.FindCartByBuyer(ctx, buyerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &models.Cart{BuyerID: buyerID}
	if createErr := r.db.WithContext(ctx).Create(fresh).Error; createErr != nil {
		if db.IsUniqueViolation(createErr) {
			return r.FindCartByBuyer(ctx, buyerID)
		}
		return nil, createErr
	}
	return fresh, nil
}

// FindCartByBuyer loads the cart with its items.
func (r *Repository) FindCartByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&cart, "buyer_id = ?", buyerID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindItem loads a single (cart, listing) line.
func (r *Repository) FindItem(ctx context.Context, cartID, listingID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).
		First(&item, "cart_id = ? AND listing_id = ?", cartID, listingID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// SaveItem writes the line item back.
func (r *Repository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// CreateItem inserts a new line item.
func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// DeleteItem removes the (cart, listing) line. Returns rows removed.
func (r *Repository) DeleteItem(ctx context.Context, cartID, listingID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND listing_id = ?", cartID, listingID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// ClearItems removes every line from the cart; used when an order is placed.
func (r *Repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}
