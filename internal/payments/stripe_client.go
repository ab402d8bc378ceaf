package payments

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/aakanshaa0/vestra/pkg/stripe"
)

// Gateway exposes the subset of Stripe operations required by the payment service.
type Gateway interface {
	CreateIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string, params *stripe.PaymentIntentRetrieveParams) (*stripe.PaymentIntent, error)
	CreateRefund(ctx context.Context, params *stripe.RefundCreateParams) (*stripe.Refund, error)
}

type stripeGatewayWrapper struct {
	api *stripe.Client
}

// NewStripeGateway wraps the provided Stripe client so the payment service can be tested.
func NewStripeGateway(api *pkgstripe.Client) Gateway {
	if api == nil || api.API() == nil {
		return nil
	}
	return &stripeGatewayWrapper{api: api.API()}
}

func (w *stripeGatewayWrapper) CreateIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	return w.api.V1PaymentIntents.Create(ctx, params)
}

func (w *stripeGatewayWrapper) RetrieveIntent(ctx context.Context, id string, params *stripe.PaymentIntentRetrieveParams) (*stripe.PaymentIntent, error) {
	return w.api.V1PaymentIntents.Retrieve(ctx, id, params)
}

func (w *stripeGatewayWrapper) CreateRefund(ctx context.Context, params *stripe.RefundCreateParams) (*stripe.Refund, error) {
	return w.api.V1Refunds.Create(ctx, params)
}
