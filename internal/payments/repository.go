package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// Repository persists payment customers and transactions.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindCustomer loads the (user, gateway) customer mapping.
func (r *Repository) FindCustomer(ctx context.Context, userID uuid.UUID, gateway enums.PaymentGateway) (*models.PaymentCustomer, error) {
	var cust models.PaymentCustomer
	if err := r.db.WithContext(ctx).
		First(&cust, "user_id = ? AND gateway = ?", userID, gateway).Error; err != nil {
		return nil, err
	}
	return &cust, nil
}

// CreateCustomer inserts the mapping. The caller handles the unique race
// by reloading on a violation.
func (r *Repository) CreateCustomer(ctx context.Context, cust *models.PaymentCustomer) error {
	return r.db.WithContext(ctx).Create(cust).Error
}

// GetOrCreateCustomer persists the mapping idempotently: a concurrent
// create losing the unique race falls back to the winner's row.
func (r *Repository) GetOrCreateCustomer(ctx context.Context, cust *models.PaymentCustomer) (*models.PaymentCustomer, error) {
	if err := r.CreateCustomer(ctx, cust); err != nil {
		if db.IsUniqueViolation(err) {
			return r.FindCustomer(ctx, cust.UserID, cust.Gateway)
		}
		return nil, err
	}
	return cust, nil
}

// CreateTransaction inserts a payment transaction row.
func (r *Repository) CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// FindTransactionByID loads a transaction by primary key.
func (r *Repository) FindTransactionByID(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	if err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindTransactionByGatewayID loads a transaction by the gateway's intent id.
func (r *Repository) FindTransactionByGatewayID(ctx context.Context, gatewayTransactionID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	if err := r.db.WithContext(ctx).
		First(&txn, "gateway_transaction_id = ?", gatewayTransactionID).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindLatestTransactionForOrder returns the newest transaction for the order.
func (r *Repository) FindLatestTransactionForOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// TransitionUpdates carries the optional columns written with a status flip.
type TransitionUpdates struct {
	FailureReason *string
	CompletedAt   *time.Time
	RefundedCents *int
}

// RecordRefundedAmount stores the refunded total on a transaction that
// stays COMPLETED. Used for partial refunds, which do not flip state.
func (r *Repository) RecordRefundedAmount(ctx context.Context, tx *gorm.DB, id uuid.UUID, refundedCents int) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	res := conn.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusCompleted).
		Update("refunded_cents", refundedCents)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTransitionLost
	}
	return nil
}

// ErrTransitionLost signals that the conditional status update matched no
// row: either a concurrent writer won or the state machine forbids the move.
var ErrTransitionLost = errors.New("payment transaction transition lost")

// TransitionStatus flips the transaction status only while the current
// status still matches, carrying any extra column updates with it.
func (r *Repository) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to enums.PaymentStatus, updates TransitionUpdates) error {
	if !from.CanTransitionTo(to) {
		return ErrTransitionLost
	}

	conn := r.db
	if tx != nil {
		conn = tx
	}

	values := map[string]any{"status": to}
	if updates.FailureReason != nil {
		values["failure_reason"] = *updates.FailureReason
	}
	if updates.CompletedAt != nil {
		values["completed_at"] = *updates.CompletedAt
	}
	if updates.RefundedCents != nil {
		values["refunded_cents"] = *updates.RefundedCents
	}

	res := conn.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTransitionLost
	}
	return nil
}
