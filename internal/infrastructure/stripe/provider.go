// Package stripe adapts the Stripe PaymentIntents API to the
// domain.PaymentProvider interface.
package stripe

import (
	"context"

	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

type Provider struct {
	api *client.API
}

func New(secretKey string) *Provider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Provider{api: api}
}

// CreateChargeIntent creates a card PaymentIntent and returns its client
// secret for the browser-side confirmation step.
func (p *Provider) CreateChargeIntent(ctx context.Context, amountCents int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Params:             stripe.Params{Context: ctx},
		Amount:             stripe.Int64(amountCents),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return "", err
	}
	return pi.ClientSecret, nil
}
