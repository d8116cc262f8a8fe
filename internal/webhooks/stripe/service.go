package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/internal/listings"
	"github.com/mvalderas/tradepost-backend/internal/orders"
	"github.com/mvalderas/tradepost-backend/internal/payments"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/logger"
	"github.com/mvalderas/tradepost-backend/pkg/metrics"
	"github.com/mvalderas/tradepost-backend/pkg/outbox"
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

type subscriptionSyncer interface {
	SyncFromGateway(ctx context.Context, tx *gorm.DB, gatewaySubscriptionID string, paid bool, periodEnd time.Time) error
}

// ServiceParams collects the reconciler dependencies.
type ServiceParams struct {
	TransactionRunner txRunner
	Events            *EventStore
	Payments          *payments.Repository
	Orders            *orders.Repository
	Listings          *listings.Repository
	Outbox            outboxPublisher
	Notifier          notifier
	Subscriptions     subscriptionSyncer
	Logger            *logger.Logger
	Metrics           *metrics.WebhookMetrics
}

// Service reconciles Stripe webhook deliveries against the local payment
// and order state machines. Every delivery either applies exactly once or
// is logged and dropped.
type Service struct {
	tx       txRunner
	events   *EventStore
	payments *payments.Repository
	orders   *orders.Repository
	listings *listings.Repository
	outbox   outboxPublisher
	notifier notifier
	subs     subscriptionSyncer
	logg     *logger.Logger
	metrics  *metrics.WebhookMetrics
}

// NewService validates the dependency set and builds the reconciler.
func NewService(params ServiceParams) (*Service, error) {
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event store required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		tx:       params.TransactionRunner,
		events:   params.Events,
		payments: params.Payments,
		orders:   params.Orders,
		listings: params.Listings,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		subs:     params.Subscriptions,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// HandleEvent applies one Stripe event. The dedup row and the state
// transition commit together; a duplicate or out-of-order delivery is
// logged and swallowed so the edge can answer 200.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event required")
	}
	ctx = s.logg.WithGatewayEvent(ctx, event.ID)
	started := time.Now()

	var err error
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		err = s.withIntent(ctx, event, s.applySucceeded)
	case stripe.EventTypePaymentIntentPaymentFailed:
		err = s.withIntent(ctx, event, s.applyFailed)
	case stripe.EventTypePaymentIntentProcessing:
		err = s.withIntent(ctx, event, s.applyProcessing)
	case stripe.EventTypeChargeRefunded:
		err = s.handleChargeRefunded(ctx, event)
	case stripe.EventTypeInvoicePaid:
		err = s.handleInvoice(ctx, event, true)
	case stripe.EventTypeInvoicePaymentFailed:
		err = s.handleInvoice(ctx, event, false)
	default:
		s.logg.Info(ctx, fmt.Sprintf("ignoring unhandled stripe event type %s", event.Type))
		return nil
	}

	s.metrics.ObserveDuration("stripe", string(event.Type), time.Since(started))
	if err != nil {
		s.metrics.IncFailure("stripe", string(event.Type))
		return err
	}
	s.metrics.IncProcessed("stripe", string(event.Type))
	return nil
}

func (s *Service) withIntent(ctx context.Context, event *stripe.Event, apply func(ctx context.Context, tx *gorm.DB, intent *stripe.PaymentIntent) error) error {
	if event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		duplicate, err := s.events.Record(ctx, tx, event.ID, string(event.Type))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording webhook event")
		}
		if duplicate {
			s.logg.Info(ctx, "duplicate stripe event dropped")
			s.metrics.IncDuplicate("stripe", string(event.Type))
			return nil
		}
		return apply(ctx, tx, &intent)
	})
}

func (s *Service) applySucceeded(ctx context.Context, tx *gorm.DB, intent *stripe.PaymentIntent) error {
	txn, err := s.transactionFor(ctx, tx, intent.ID)
	if err != nil || txn == nil {
		return err
	}

	completedAt := time.Now()
	transitionErr := s.payments.TransitionStatus(ctx, tx, txn.ID, txn.Status, enums.PaymentStatusCompleted, payments.TransitionUpdates{
		CompletedAt: &completedAt,
	})
	if transitionErr != nil {
		return s.dropOnLostTransition(ctx, transitionErr, "completed")
	}

	if txn.OrderID == nil {
		return nil
	}
	order, err := s.orders.WithTx(tx).FindByID(ctx, *txn.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	moved, err := s.orders.MarkPaid(ctx, tx, order.ID, completedAt)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order paid")
	}
	if !moved {
		s.logg.Warn(ctx, fmt.Sprintf("order %s not pending, payment success dropped", order.ID))
		return nil
	}
	order.Status = enums.OrderStatusPaid

	if err := s.notifier.NotifyTx(ctx, tx, order.BuyerID, enums.NotificationTypeOrderPaid,
		"Payment received", fmt.Sprintf("Your payment for order %s was received.", order.ID)); err != nil {
		return err
	}
	for _, sellerID := range sellerIDs(order) {
		if err := s.notifier.NotifyTx(ctx, tx, sellerID, enums.NotificationTypeOrderPaid,
			"Order paid", fmt.Sprintf("Order %s has been paid and is ready to ship.", order.ID)); err != nil {
			return err
		}
	}

	return s.outbox.Emit(ctx, tx, orderEvent(enums.EventOrderPaid, order))
}

func (s *Service) applyFailed(ctx context.Context, tx *gorm.DB, intent *stripe.PaymentIntent) error {
	txn, err := s.transactionFor(ctx, tx, intent.ID)
	if err != nil || txn == nil {
		return err
	}

	reason := "payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		reason = intent.LastPaymentError.Msg
	}
	transitionErr := s.payments.TransitionStatus(ctx, tx, txn.ID, txn.Status, enums.PaymentStatusFailed, payments.TransitionUpdates{
		FailureReason: &reason,
	})
	if transitionErr != nil {
		return s.dropOnLostTransition(ctx, transitionErr, "failed")
	}

	if txn.OrderID == nil {
		return nil
	}
	order, err := s.orders.WithTx(tx).FindByID(ctx, *txn.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	moved, err := s.orders.TransitionStatus(ctx, tx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling order")
	}
	if !moved {
		s.logg.Warn(ctx, fmt.Sprintf("order %s not pending, payment failure dropped", order.ID))
		return nil
	}
	order.Status = enums.OrderStatusCancelled

	for _, item := range order.Items {
		if err := s.listings.Restore(ctx, tx, item.ListingID, item.Quantity); err != nil {
			return err
		}
	}
	if err := s.notifier.NotifyTx(ctx, tx, order.BuyerID, enums.NotificationTypeOrderCancelled,
		"Payment failed", fmt.Sprintf("Payment for order %s failed and the order was cancelled.", order.ID)); err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, orderEvent(enums.EventOrderCancelled, order))
}

func (s *Service) applyProcessing(ctx context.Context, tx *gorm.DB, intent *stripe.PaymentIntent) error {
	txn, err := s.transactionFor(ctx, tx, intent.ID)
	if err != nil || txn == nil {
		return err
	}
	transitionErr := s.payments.TransitionStatus(ctx, tx, txn.ID, enums.PaymentStatusPending, enums.PaymentStatusProcessing, payments.TransitionUpdates{})
	if transitionErr != nil {
		return s.dropOnLostTransition(ctx, transitionErr, "processing")
	}
	return nil
}

func (s *Service) handleChargeRefunded(ctx context.Context, event *stripe.Event) error {
	if event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
	}
	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		s.logg.Warn(ctx, "charge.refunded without payment intent dropped")
		return nil
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		duplicate, err := s.events.Record(ctx, tx, event.ID, string(event.Type))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording webhook event")
		}
		if duplicate {
			s.logg.Info(ctx, "duplicate stripe event dropped")
			s.metrics.IncDuplicate("stripe", string(event.Type))
			return nil
		}

		txn, err := s.transactionFor(ctx, tx, charge.PaymentIntent.ID)
		if err != nil || txn == nil {
			return err
		}

		refunded := int(charge.AmountRefunded)
		if refunded < txn.AmountCents {
			// Partial refund: the transaction stays settled and the order
			// keeps its status and stock. Only the refunded total moves.
			if err := s.payments.RecordRefundedAmount(ctx, tx, txn.ID, refunded); err != nil {
				return s.dropOnLostTransition(ctx, err, "partial refund")
			}
			s.logg.Info(ctx, fmt.Sprintf("partial refund of %d/%d cents recorded for transaction %s", refunded, txn.AmountCents, txn.ID))
			return nil
		}

		transitionErr := s.payments.TransitionStatus(ctx, tx, txn.ID, enums.PaymentStatusCompleted, enums.PaymentStatusRefunded, payments.TransitionUpdates{
			RefundedCents: &refunded,
		})
		if transitionErr != nil {
			return s.dropOnLostTransition(ctx, transitionErr, "refunded")
		}

		if txn.OrderID == nil {
			return nil
		}
		order, err := s.orders.WithTx(tx).FindByID(ctx, *txn.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		if !refundableOrderStatus(order.Status) {
			s.logg.Warn(ctx, fmt.Sprintf("order %s in status %s, refund event dropped", order.ID, order.Status))
			return nil
		}
		moved, err := s.orders.TransitionStatus(ctx, tx, order.ID, order.Status, enums.OrderStatusRefunded)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refunding order")
		}
		if !moved {
			s.logg.Warn(ctx, fmt.Sprintf("order %s transition lost, refund event dropped", order.ID))
			return nil
		}
		order.Status = enums.OrderStatusRefunded

		for _, item := range order.Items {
			if err := s.listings.Restore(ctx, tx, item.ListingID, item.Quantity); err != nil {
				return err
			}
		}
		if err := s.notifier.NotifyTx(ctx, tx, order.BuyerID, enums.NotificationTypeOrderRefunded,
			"Order refunded", fmt.Sprintf("Order %s was refunded.", order.ID)); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, orderEvent(enums.EventOrderRefunded, order))
	})
}

// handleInvoice syncs subscription billing state from invoice outcomes.
func (s *Service) handleInvoice(ctx context.Context, event *stripe.Event, paid bool) error {
	if s.subs == nil {
		s.logg.Info(ctx, "invoice event ignored, no subscription syncer wired")
		return nil
	}
	subscriptionID := event.GetObjectValue("subscription")
	if subscriptionID == "" {
		s.logg.Warn(ctx, "invoice event without subscription id dropped")
		return nil
	}
	var periodEnd time.Time
	if raw := event.GetObjectValue("period_end"); raw != "" {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
			periodEnd = time.Unix(secs, 0)
		}
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		duplicate, err := s.events.Record(ctx, tx, event.ID, string(event.Type))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording webhook event")
		}
		if duplicate {
			s.logg.Info(ctx, "duplicate stripe event dropped")
			s.metrics.IncDuplicate("stripe", string(event.Type))
			return nil
		}
		return s.subs.SyncFromGateway(ctx, tx, subscriptionID, paid, periodEnd)
	})
}

// transactionFor resolves the local transaction. Unknown intents are logged
// and dropped: the gateway may ping us about charges we never created.
func (s *Service) transactionFor(ctx context.Context, tx *gorm.DB, gatewayID string) (*models.PaymentTransaction, error) {
	txn, err := s.payments.WithTx(tx).FindTransactionByGatewayID(ctx, gatewayID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, fmt.Sprintf("no local transaction for intent %s, event dropped", gatewayID))
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading transaction")
	}
	return txn, nil
}

// dropOnLostTransition converts a lost conditional update into a logged
// no-op so out-of-order deliveries still answer 200.
func (s *Service) dropOnLostTransition(ctx context.Context, err error, target string) error {
	if errors.Is(err, payments.ErrTransitionLost) {
		s.logg.Warn(ctx, fmt.Sprintf("out-of-order stripe event dropped (target status %s)", target))
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transitioning transaction")
}

func refundableOrderStatus(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusPaid, enums.OrderStatusShipped, enums.OrderStatusCompleted:
		return true
	default:
		return false
	}
}

func sellerIDs(order *models.Order) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	ids := []uuid.UUID{}
	for _, item := range order.Items {
		if !seen[item.SellerID] {
			seen[item.SellerID] = true
			ids = append(ids, item.SellerID)
		}
	}
	return ids
}

func orderEvent(eventType enums.OutboxEventType, order *models.Order) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: orders.OrderEvent{
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
