package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

// Repository persists seller payouts.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a payouts repository bound to db.
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

// Create inserts a payout row.
func (r *Repository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

// FindByID loads one payout.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).First(&payout, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

// ListFilter narrows payout listings.
type ListFilter struct {
	SellerID *uuid.UUID
	Status   *enums.PayoutStatus
}

// List returns payouts newest first, optionally scoped to a seller or status.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Payout, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Payout{})
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Payout
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

// TransitionUpdates carries the columns written alongside a status change.
type TransitionUpdates struct {
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	RejectionReason *string
	SettledAt       *time.Time
}

// TransitionStatus moves a payout from one status to another with a
// conditional update. Returns false when the row was not in the expected
// status, so a concurrent transition loses cleanly.
func (r *Repository) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to enums.PayoutStatus, updates TransitionUpdates) (bool, error) {
	values := map[string]any{"status": to}
	if updates.ApprovedBy != nil {
		values["approved_by"] = *updates.ApprovedBy
	}
	if updates.ApprovedAt != nil {
		values["approved_at"] = *updates.ApprovedAt
	}
	if updates.RejectionReason != nil {
		values["rejection_reason"] = *updates.RejectionReason
	}
	if updates.SettledAt != nil {
		values["settled_at"] = *updates.SettledAt
	}

	result := r.WithTx(tx).db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
