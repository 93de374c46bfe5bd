package fulfillment

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	ErrMissingSecret    = errors.New("stripe webhook secret is not configured")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// VerifyEvent validates that the webhook genuinely came from Stripe and
// decodes it. The payload must be the raw request body bytes: any JSON
// round-trip before this call breaks the signature.
func VerifyEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	if secret == "" {
		return stripe.Event{}, ErrMissingSecret
	}

	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, opts)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return event, nil
}
