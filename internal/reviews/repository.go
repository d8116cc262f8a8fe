package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

// Repository persists listing reviews.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a reviews repository bound to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a review row. The unique index on order_item_id surfaces
// duplicates as a unique violation.
func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// FindByID loads one review.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// ListByListing returns reviews for a listing newest first.
func (r *Repository) ListByListing(ctx context.Context, listingID uuid.UUID, params pagination.Params) ([]models.Review, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Review{}).Where("listing_id = ?", listingID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Review
	err := query.
		Order("created_at DESC, id DESC").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// RatingSummary aggregates the review count and average rating per listing.
type RatingSummary struct {
	ReviewCount   int64   `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
}

// Summarize returns the rating aggregate for a listing.
func (r *Repository) Summarize(ctx context.Context, listingID uuid.UUID) (RatingSummary, error) {
	var summary RatingSummary
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS review_count, COALESCE(AVG(rating), 0) AS average_rating").
		Where("listing_id = ?", listingID).
		Scan(&summary).Error
	return summary, err
}

// FindPurchase loads the order item under review together with its order.
func (r *Repository) FindPurchase(ctx context.Context, orderItemID uuid.UUID) (*models.OrderItem, *models.Order, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", orderItemID).Error; err != nil {
		return nil, nil, err
	}
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", item.OrderID).Error; err != nil {
		return nil, nil, err
	}
	return &item, &order, nil
}
