package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

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

type notifier interface {
	NotifyTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind enums.NotificationType, title, message string) error
}

// Service manages seller payout accrual and the admin settlement lifecycle.
type Service interface {
	Accrue(ctx context.Context, tx *gorm.DB, order *models.Order) error
	GetPayout(ctx context.Context, userID uuid.UUID, role enums.UserRole, payoutID uuid.UUID) (*PayoutDTO, error)
	ListSellerPayouts(ctx context.Context, sellerID uuid.UUID, status *enums.PayoutStatus, params pagination.Params) (*pagination.Page[PayoutDTO], error)
	ListAllPayouts(ctx context.Context, status *enums.PayoutStatus, params pagination.Params) (*pagination.Page[PayoutDTO], error)
	Approve(ctx context.Context, adminID, payoutID uuid.UUID) (*PayoutDTO, error)
	Reject(ctx context.Context, adminID, payoutID uuid.UUID, reason string) (*PayoutDTO, error)
	MarkProcessing(ctx context.Context, adminID, payoutID uuid.UUID) (*PayoutDTO, error)
	MarkCompleted(ctx context.Context, adminID, payoutID uuid.UUID) (*PayoutDTO, error)
	MarkFailed(ctx context.Context, adminID, payoutID uuid.UUID, reason string) (*PayoutDTO, error)
}

type service struct {
	repo           *Repository
	tx             txRunner
	outbox         outboxPublisher
	notifications  notifier
	commissionRate decimal.Decimal
	currency       string
}

// NewService wires the payouts service.
func NewService(repo *Repository, tx txRunner, outboxSvc outboxPublisher, notifications notifier, commissionRate decimal.Decimal, currency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notifications == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if commissionRate.IsNegative() {
		return nil, fmt.Errorf("commission rate cannot be negative")
	}
	if currency == "" {
		currency = "usd"
	}
	return &service{
		repo:           repo,
		tx:             tx,
		outbox:         outboxSvc,
		notifications:  notifications,
		commissionRate: commissionRate,
		currency:       currency,
	}, nil
}

// Accrue creates one pending payout per seller with items in the order,
// net of the marketplace commission. Runs inside the caller's transaction
// so accrual commits atomically with the order completion.
func (s *service) Accrue(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	gross := make(map[uuid.UUID]int)
	for _, item := range order.Items {
		gross[item.SellerID] += item.PriceAtPurchaseCents * item.Quantity
	}

	repo := s.repo.WithTx(tx)
	for sellerID, amount := range gross {
		commission := s.commissionRate.Mul(decimal.NewFromInt(int64(amount))).Round(0).IntPart()
		net := amount - int(commission)
		if net <= 0 {
			continue
		}

		orderID := order.ID
		payout := models.Payout{
			SellerID:    sellerID,
			OrderID:     &orderID,
			AmountCents: net,
			Currency:    s.currency,
			Status:      enums.PayoutStatusPending,
		}
		if err := repo.Create(ctx, &payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating payout")
		}
		if err := s.notifications.NotifyTx(ctx, tx, sellerID, enums.NotificationTypePayoutUpdate,
			"Payout pending", fmt.Sprintf("A payout of %d cents is pending review.", net)); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) GetPayout(ctx context.Context, userID uuid.UUID, role enums.UserRole, payoutID uuid.UUID) (*PayoutDTO, error) {
	payout, err := s.load(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if role != enums.UserRoleAdmin && payout.SellerID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payout belongs to another seller")
	}
	return toPayoutDTO(payout), nil
}

func (s *service) ListSellerPayouts(ctx context.Context, sellerID uuid.UUID, status *enums.PayoutStatus, params pagination.Params) (*pagination.Page[PayoutDTO], error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	return s.list(ctx, ListFilter{SellerID: &sellerID, Status: status}, params)
}

func (s *service) ListAllPayouts(ctx context.Context, status *enums.PayoutStatus, params pagination.Params) (*pagination.Page[PayoutDTO], error) {
	return s.list(ctx, ListFilter{Status: status}, params)
}

func (s *service) list(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Page[PayoutDTO], error) {
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing payouts")
	}
	items := make([]PayoutDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *toPayoutDTO(&rows[i]))
	}
	return pagination.NewPage(items, params, total), nil
}

func (s *service) Approve(ctx context.Context, adminID, payoutID uuid.UUID) (*PayoutDTO, error) {
	now := time.Now().UTC()
	return s.transition(ctx, payoutID, enums.PayoutStatusPending, enums.PayoutStatusApproved, adminID, TransitionUpdates{
		ApprovedBy: &adminID,
		ApprovedAt: &now,
	}, "Payout approved", "Your payout has been approved and is queued for processing.")
}

func (s *service) Reject(ctx context.Context, adminID, payoutID uuid.UUID, reason string) (*PayoutDTO, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}
	return s.transition(ctx, payoutID, enums.PayoutStatusPending, enums.PayoutStatusRejected, adminID, TransitionUpdates{
		RejectionReason: &reason,
	}, "Payout rejected", fmt.Sprintf("Your payout was rejected: %s", reason))
}

func (s *service) MarkProcessing(ctx context.Context, adminID, payoutID uuid.UUID) (*PayoutDTO, error) {
	return s.transition(ctx, payoutID, enums.PayoutStatusApproved, enums.PayoutStatusProcessing, adminID, TransitionUpdates{},
		"Payout processing", "Your payout transfer has started.")
}

func (s *service) MarkCompleted(ctx context.Context, adminID, payoutID uuid.UUID) (*PayoutDTO, error) {
	now := time.Now().UTC()
	return s.transition(ctx, payoutID, enums.PayoutStatusProcessing, enums.PayoutStatusCompleted, adminID, TransitionUpdates{
		SettledAt: &now,
	}, "Payout completed", "Your payout has been settled.")
}

func (s *service) MarkFailed(ctx context.Context, adminID, payoutID uuid.UUID, reason string) (*PayoutDTO, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "failure reason required")
	}
	return s.transition(ctx, payoutID, enums.PayoutStatusProcessing, enums.PayoutStatusFailed, adminID, TransitionUpdates{
		RejectionReason: &reason,
	}, "Payout failed", fmt.Sprintf("Your payout transfer failed: %s", reason))
}

func (s *service) transition(ctx context.Context, payoutID uuid.UUID, from, to enums.PayoutStatus, actorID uuid.UUID, updates TransitionUpdates, title, message string) (*PayoutDTO, error) {
	payout, err := s.load(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if !payout.Status.CanTransitionTo(to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payout cannot move from %s to %s", payout.Status, to))
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.TransitionStatus(ctx, tx, payout.ID, from, to, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transitioning payout")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payout must be %s to become %s", from, to))
		}

		payout.Status = to
		payout.ApprovedBy = coalesce(updates.ApprovedBy, payout.ApprovedBy)
		payout.ApprovedAt = coalesce(updates.ApprovedAt, payout.ApprovedAt)
		payout.RejectionReason = coalesce(updates.RejectionReason, payout.RejectionReason)
		payout.SettledAt = coalesce(updates.SettledAt, payout.SettledAt)

		if err := s.outbox.Emit(ctx, tx, s.payoutEvent(payout, actorID)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emitting payout event")
		}
		return s.notifications.NotifyTx(ctx, tx, payout.SellerID, enums.NotificationTypePayoutUpdate, title, message)
	})
	if txErr != nil {
		return nil, txErr
	}
	return toPayoutDTO(payout), nil
}

func (s *service) load(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payout")
	}
	return payout, nil
}

// PayoutEvent is the outbox payload for payout lifecycle changes.
type PayoutEvent struct {
	PayoutID    uuid.UUID  `json:"payout_id"`
	SellerID    uuid.UUID  `json:"seller_id"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	Status      string     `json:"status"`
	AmountCents int        `json:"amount_cents"`
	Currency    string     `json:"currency"`
}

func (s *service) payoutEvent(payout *models.Payout, actorID uuid.UUID) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventPayoutTransition,
		AggregateType: enums.AggregatePayout,
		AggregateID:   payout.ID,
		Actor:         &outbox.ActorRef{UserID: actorID},
		Data: PayoutEvent{
			PayoutID:    payout.ID,
			SellerID:    payout.SellerID,
			OrderID:     payout.OrderID,
			Status:      payout.Status.String(),
			AmountCents: payout.AmountCents,
			Currency:    payout.Currency,
		},
		Version:    1,
		OccurredAt: time.Now(),
	}
}

func coalesce[T any](next, current *T) *T {
	if next != nil {
		return next
	}
	return current
}
