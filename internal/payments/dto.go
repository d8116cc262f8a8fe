package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
)

// CustomerDTO is the local mirror of a gateway customer.
type CustomerDTO struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	Gateway           string    `json:"gateway"`
	GatewayCustomerID string    `json:"gateway_customer_id"`
}

// PaymentIntentDTO is returned when a charge is authorized.
type PaymentIntentDTO struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	GatewayID     string    `json:"gateway_id"`
	ClientSecret  string    `json:"client_secret,omitempty"`
	AmountCents   int       `json:"amount_cents"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
}

// TransactionDTO is the payment transaction payload returned to clients.
type TransactionDTO struct {
	ID            uuid.UUID  `json:"id"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	UserID        uuid.UUID  `json:"user_id"`
	Gateway       string     `json:"gateway"`
	GatewayID     string     `json:"gateway_id"`
	Status        string     `json:"status"`
	AmountCents   int        `json:"amount_cents"`
	RefundedCents int        `json:"refunded_cents"`
	Currency      string     `json:"currency"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toCustomerDTO(cust *models.PaymentCustomer) *CustomerDTO {
	if cust == nil {
		return nil
	}
	return &CustomerDTO{
		ID:                cust.ID,
		UserID:            cust.UserID,
		Gateway:           cust.Gateway.String(),
		GatewayCustomerID: cust.GatewayCustomerID,
	}
}

func toTransactionDTO(txn *models.PaymentTransaction) *TransactionDTO {
	if txn == nil {
		return nil
	}
	return &TransactionDTO{
		ID:            txn.ID,
		OrderID:       txn.OrderID,
		UserID:        txn.UserID,
		Gateway:       txn.Gateway.String(),
		GatewayID:     txn.GatewayTransactionID,
		Status:        txn.Status.String(),
		AmountCents:   txn.AmountCents,
		RefundedCents: txn.RefundedCents,
		Currency:      txn.Currency,
		FailureReason: txn.FailureReason,
		CompletedAt:   txn.CompletedAt,
		CreatedAt:     txn.CreatedAt,
	}
}
