// Package payment integrates the two external payment providers behind a
// single Gateway interface. Adapters only talk to the provider and report
// a verified outcome; wallet state is never touched here.
package payment

import (
	"context"
	"fmt"

	apperrors "github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/types"
)

// CreateIntentParams asks a provider to prepare a charge.
type CreateIntentParams struct {
	// AmountMinor is the charge amount in the provider's smallest
	// currency unit (cents, paise).
	AmountMinor int64
	Currency    string
	// Receipt ties the provider-side object back to our transaction id.
	Receipt  string
	Metadata map[string]string
}

// Intent is the provider-side object the client completes the payment
// against. ClientParams carries whatever the frontend needs to hand to
// the provider's SDK.
type Intent struct {
	Ref          string
	ClientParams map[string]string
}

// VerifyParams carries the client's completion proof plus the intent ref
// stored at initiation time.
type VerifyParams struct {
	IntentRef string
	PaymentID string
	Signature string
}

// VerificationResult is a provider's verdict on a completed payment.
// Succeeded is only true when the provider reports the payment captured;
// AmountMinor is the captured amount for the caller to compare.
type VerificationResult struct {
	Succeeded     bool
	AmountMinor   int64
	PaymentRef    string
	FailureReason string
}

// Gateway is the capability set shared by both providers. Adding a third
// provider means one more implementation, registered by name.
type Gateway interface {
	Name() types.PaymentGateway
	CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error)
	VerifyCompletion(ctx context.Context, p VerifyParams) (*VerificationResult, error)
}

// Registry dispatches to a gateway by name.
type Registry struct {
	gateways map[types.PaymentGateway]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[types.PaymentGateway]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Name()] = g
	}
	return r
}

// Get returns the named gateway or a validation error for unknown names.
func (r *Registry) Get(name types.PaymentGateway) (Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, apperrors.ValidationFailed(
			"unsupported payment gateway",
			fmt.Sprintf("gateway %q is not configured", name),
		)
	}
	return g, nil
}
