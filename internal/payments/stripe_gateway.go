package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/refund"
	"github.com/stripe/stripe-go/v84/subscription"

	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	pkgstripe "github.com/mvalderas/tradepost-backend/pkg/stripe"
)

// StripeAPI exposes the subset of Stripe operations the gateway needs, so
// services can be tested against a stub.
type StripeAPI interface {
	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error)
	CreateSubscription(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	CancelSubscription(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error)
}

type stripeAPIWrapper struct{}

// NewStripeAPI wraps the package-level Stripe bindings behind StripeAPI.
func NewStripeAPI(client *pkgstripe.Client) StripeAPI {
	if client == nil {
		return nil
	}
	return &stripeAPIWrapper{}
}

func (w *stripeAPIWrapper) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if params != nil {
		params.Context = ctx
	}
	return customer.New(params)
}

func (w *stripeAPIWrapper) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}

func (w *stripeAPIWrapper) CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	if params != nil {
		params.Context = ctx
	}
	return refund.New(params)
}

func (w *stripeAPIWrapper) CreateSubscription(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if params != nil {
		params.Context = ctx
	}
	return subscription.New(params)
}

func (w *stripeAPIWrapper) CancelSubscription(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	if params != nil {
		params.Context = ctx
	}
	return subscription.Cancel(id, params)
}

type stripeGateway struct {
	api StripeAPI
}

// NewStripeGateway builds the Stripe-backed Gateway.
func NewStripeGateway(api StripeAPI) (Gateway, error) {
	if api == nil {
		return nil, fmt.Errorf("stripe api required")
	}
	return &stripeGateway{api: api}, nil
}

func (g *stripeGateway) Name() enums.PaymentGateway {
	return enums.PaymentGatewayStripe
}

func (g *stripeGateway) CreateCustomer(ctx context.Context, input CustomerInput) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(input.Email),
	}
	if input.Name != "" {
		params.Name = stripe.String(input.Name)
	}
	params.Metadata = map[string]string{"user_id": input.UserID}

	cust, err := g.api.CreateCustomer(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "creating gateway customer")
	}
	return cust.ID, nil
}

func (g *stripeGateway) CreatePaymentIntent(ctx context.Context, input IntentInput) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(input.AmountCents)),
		Currency: stripe.String(input.Currency),
		Customer: stripe.String(input.CustomerID),
	}
	params.Metadata = map[string]string{"order_id": input.OrderID}

	intent, err := g.api.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "creating payment intent")
	}
	return &Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}, nil
}

func (g *stripeGateway) Refund(ctx context.Context, gatewayTransactionID string, amountCents *int) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(gatewayTransactionID),
	}
	if amountCents != nil {
		params.Amount = stripe.Int64(int64(*amountCents))
	}

	ref, err := g.api.CreateRefund(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "creating refund")
	}
	return ref.ID, nil
}

func (g *stripeGateway) CreateSubscription(ctx context.Context, customerID, priceID string) (string, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
	}
	sub, err := g.api.CreateSubscription(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "creating gateway subscription")
	}
	return sub.ID, nil
}

func (g *stripeGateway) CancelSubscription(ctx context.Context, gatewaySubscriptionID string) error {
	if _, err := g.api.CancelSubscription(ctx, gatewaySubscriptionID, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "cancelling gateway subscription")
	}
	return nil
}
