package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/subscription"
)

// StripeSubscriptionAPI is the subset of the Stripe SDK the gateway uses,
// extracted so jobs can be tested without the network.
type StripeSubscriptionAPI interface {
	Create(params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	Cancel(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error)
}

type stripeAPI struct{}

func (stripeAPI) Create(params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return subscription.New(params)
}

func (stripeAPI) Cancel(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	return subscription.Cancel(id, params)
}

// StripeGatewayParams groups dependencies for the Stripe gateway.
type StripeGatewayParams struct {
	APIKey  string
	Timeout time.Duration
	// API overrides the SDK binding, for tests.
	API StripeSubscriptionAPI
}

// StripeGateway implements PaymentGateway on top of the Stripe SDK.
type StripeGateway struct {
	api     StripeSubscriptionAPI
	timeout time.Duration
}

const defaultCallTimeout = 15 * time.Second

// NewStripeGateway builds the gateway and installs the API key globally,
// matching how the SDK expects to be initialized.
func NewStripeGateway(params StripeGatewayParams) (*StripeGateway, error) {
	if params.API == nil {
		if params.APIKey == "" {
			return nil, errors.New("stripe api key is required")
		}
		stripe.Key = params.APIKey
		params.API = stripeAPI{}
	}
	if params.Timeout <= 0 {
		params.Timeout = defaultCallTimeout
	}
	return &StripeGateway{api: params.API, timeout: params.Timeout}, nil
}

func (g *StripeGateway) RenewSubscription(ctx context.Context, customerRef, subscriptionRef, priceRef string) (*RenewalResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerRef),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceRef)},
		},
	}
	params.Context = ctx

	sub, err := g.api.Create(params)
	if err != nil {
		return nil, &GatewayError{Op: "renew", Ref: subscriptionRef, Err: err}
	}
	return &RenewalResult{
		SubscriptionRef: sub.ID,
		Status:          string(sub.Status),
	}, nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionRef string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := g.api.Cancel(subscriptionRef, params); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			// Already gone remotely; nothing left to cancel.
			return nil
		}
		return &GatewayError{Op: "cancel", Ref: subscriptionRef, Err: err}
	}
	return nil
}
