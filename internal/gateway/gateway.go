package gateway

import (
	"context"
	"fmt"
)

// RenewalResult reports the outcome of a successful gateway renewal charge.
type RenewalResult struct {
	// SubscriptionRef is the gateway's subscription identifier after the
	// renewal. May differ from the ref the caller sent when the gateway
	// issued a replacement subscription.
	SubscriptionRef string
	// Status is the gateway-side subscription status, informational only.
	Status string
}

// PaymentGateway is the remote billing provider the renewal and cancellation
// jobs talk to. Implementations must be safe for concurrent use.
type PaymentGateway interface {
	// RenewSubscription charges the customer for another period. A non-nil
	// error means the charge did not happen; callers must not retry within
	// the same batch run.
	RenewSubscription(ctx context.Context, customerRef, subscriptionRef, priceRef string) (*RenewalResult, error)
	// CancelSubscription terminates the remote subscription. Cancelling an
	// already-cancelled subscription is not an error.
	CancelSubscription(ctx context.Context, subscriptionRef string) error
}

// GatewayError wraps a provider failure with the operation and the external
// ref involved, so per-account logs can identify the remote object.
type GatewayError struct {
	Op  string
	Ref string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s %s: %v", e.Op, e.Ref, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
