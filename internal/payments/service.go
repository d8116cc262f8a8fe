package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
)

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Service exposes the payment operations behind the gateway seam.
type Service interface {
	GetOrCreateCustomer(ctx context.Context, userID uuid.UUID) (*CustomerDTO, error)
	CreatePaymentIntent(ctx context.Context, buyerID, orderID uuid.UUID) (*PaymentIntentDTO, error)
	RefundPayment(ctx context.Context, actorID uuid.UUID, role enums.UserRole, transactionID uuid.UUID, amountCents *int) (*TransactionDTO, error)
	GetTransaction(ctx context.Context, actorID uuid.UUID, role enums.UserRole, transactionID uuid.UUID) (*TransactionDTO, error)
}

type service struct {
	repo    *Repository
	gateway Gateway
	users   userLoader
	orders  orderLoader
}

// NewService constructs the payment service.
func NewService(repo *Repository, gateway Gateway, users userLoader, orders orderLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	return &service{repo: repo, gateway: gateway, users: users, orders: orders}, nil
}

// GetOrCreateCustomer mirrors the user at the gateway exactly once per
// (user, gateway) pair. Losing the unique race reuses the winner's row.
func (s *service) GetOrCreateCustomer(ctx context.Context, userID uuid.UUID) (*CustomerDTO, error) {
	existing, err := s.repo.FindCustomer(ctx, userID, s.gateway.Name())
	if err == nil {
		return toCustomerDTO(existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment customer")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}

	gatewayCustomerID, err := s.gateway.CreateCustomer(ctx, CustomerInput{
		UserID: user.ID.String(),
		Email:  user.Email,
		Name:   user.Name,
	})
	if err != nil {
		return nil, err
	}

	cust, err := s.repo.GetOrCreateCustomer(ctx, &models.PaymentCustomer{
		UserID:            userID,
		Gateway:           s.gateway.Name(),
		GatewayCustomerID: gatewayCustomerID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting payment customer")
	}
	return toCustomerDTO(cust), nil
}

// CreatePaymentIntent authorizes the order total at the gateway and records
// a PENDING transaction. The order itself is only moved by the webhook
// reconciler once the gateway confirms the outcome.
func (s *service) CreatePaymentIntent(ctx context.Context, buyerID, orderID uuid.UUID) (*PaymentIntentDTO, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be paid")
	}

	cust, err := s.GetOrCreateCustomer(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, IntentInput{
		CustomerID:  cust.GatewayCustomerID,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		OrderID:     order.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	txn := &models.PaymentTransaction{
		OrderID:              &order.ID,
		UserID:               buyerID,
		Gateway:              s.gateway.Name(),
		GatewayTransactionID: intent.ID,
		Status:               enums.PaymentStatusPending,
		AmountCents:          order.TotalCents,
		Currency:             order.Currency,
	}
	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting payment transaction")
	}

	return &PaymentIntentDTO{
		TransactionID: txn.ID,
		GatewayID:     intent.ID,
		ClientSecret:  intent.ClientSecret,
		AmountCents:   txn.AmountCents,
		Currency:      txn.Currency,
		Status:        txn.Status.String(),
	}, nil
}

// RefundPayment initiates a gateway refund for a COMPLETED transaction.
// The local status flips to REFUNDED when the gateway's webhook confirms.
func (s *service) RefundPayment(ctx context.Context, actorID uuid.UUID, role enums.UserRole, transactionID uuid.UUID, amountCents *int) (*TransactionDTO, error) {
	txn, err := s.loadTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRefund(ctx, actorID, role, txn); err != nil {
		return nil, err
	}

	if txn.Status != enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed transactions can be refunded")
	}
	if amountCents != nil {
		if *amountCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
		}
		if *amountCents > txn.AmountCents-txn.RefundedCents {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds remaining balance")
		}
	}

	if _, err := s.gateway.Refund(ctx, txn.GatewayTransactionID, amountCents); err != nil {
		return nil, err
	}
	return toTransactionDTO(txn), nil
}

func (s *service) GetTransaction(ctx context.Context, actorID uuid.UUID, role enums.UserRole, transactionID uuid.UUID) (*TransactionDTO, error) {
	txn, err := s.loadTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if role != enums.UserRoleAdmin && txn.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to another user")
	}
	return toTransactionDTO(txn), nil
}

func (s *service) loadTransaction(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error) {
	txn, err := s.repo.FindTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading transaction")
	}
	return txn, nil
}

// authorizeRefund admits admins and, for order-backed transactions, any
// seller with an item in that order.
func (s *service) authorizeRefund(ctx context.Context, actorID uuid.UUID, role enums.UserRole, txn *models.PaymentTransaction) error {
	if role == enums.UserRoleAdmin {
		return nil
	}
	if txn.OrderID == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "refund not permitted")
	}
	order, err := s.orders.FindByID(ctx, *txn.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	for _, item := range order.Items {
		if item.SellerID == actorID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "refund not permitted")
}
