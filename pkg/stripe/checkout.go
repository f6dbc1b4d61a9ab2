package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

// CheckoutRequest describes a single-line-item hosted checkout.
type CheckoutRequest struct {
	ReferenceID string
	ProductName string
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
}

// CheckoutSession is the subset of the gateway session the platform keeps.
type CheckoutSession struct {
	ID  string
	URL string
}

type sessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// CheckoutClient creates hosted Stripe Checkout sessions.
type CheckoutClient struct {
	successURL string
	cancelURL  string
	create     sessionCreator
}

// NewCheckoutClient binds checkout creation to an initialized Stripe client.
func NewCheckoutClient(api *Client) (*CheckoutClient, error) {
	if api == nil {
		return nil, errors.New("stripe client required")
	}
	return &CheckoutClient{
		successURL: api.successURL,
		cancelURL:  api.cancelURL,
		create:     session.New,
	}, nil
}

// CreateCheckoutSession opens a payment-mode session for req.
func (c *CheckoutClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	if req.AmountMinor <= 0 {
		return CheckoutSession{}, errors.New("checkout amount must be positive")
	}
	params := c.sessionParams(req)
	params.Context = ctx

	sess, err := c.create(params)
	if err != nil {
		return CheckoutSession{}, err
	}
	if sess == nil || sess.ID == "" {
		return CheckoutSession{}, errors.New("stripe returned an empty checkout session")
	}
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (c *CheckoutClient) sessionParams(req CheckoutRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		ClientReferenceID: stripe.String(req.ReferenceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}
