package payments

import (
	"context"

	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// CustomerInput identifies the local user being mirrored at the gateway.
type CustomerInput struct {
	UserID string
	Email  string
	Name   string
}

// IntentInput describes the charge to authorize.
type IntentInput struct {
	CustomerID  string
	AmountCents int
	Currency    string
	OrderID     string
}

// Intent is the gateway's handle for a created payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Gateway abstracts the payment provider. The Stripe implementation is the
// default; a PayPal implementation plugs in behind the same seam.
type Gateway interface {
	Name() enums.PaymentGateway
	CreateCustomer(ctx context.Context, input CustomerInput) (string, error)
	CreatePaymentIntent(ctx context.Context, input IntentInput) (*Intent, error)
	Refund(ctx context.Context, gatewayTransactionID string, amountCents *int) (string, error)
	CancelSubscription(ctx context.Context, gatewaySubscriptionID string) error
	CreateSubscription(ctx context.Context, customerID, priceID string) (string, error)
}
