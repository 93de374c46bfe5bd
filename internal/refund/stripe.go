package refund

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

var ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")

// StripeProvider issues refunds through the Stripe API.
type StripeProvider struct {
	client *client.API
}

func NewStripeProvider(secretKey string) (*StripeProvider, error) {
	if secretKey == "" {
		return nil, ErrStripeClientInitFailed
	}
	return &StripeProvider{client: client.New(secretKey, nil)}, nil
}

func (p *StripeProvider) CreateRefund(ctx context.Context, paymentIntentID string, amount int64) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amount),
	}
	params.Context = ctx

	refund, err := p.client.Refunds.New(params)
	if err != nil {
		return "", err
	}
	return refund.ID, nil
}
