package stripewebhook

import (
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/tutorhub/tutorhub-backend/pkg/errors"
)

// GatewayEvent is an authenticated gateway event reduced to what
// reconciliation acts on. The set of implementations is closed.
type GatewayEvent interface {
	gatewayEvent()
	ID() string
}

// CheckoutCompleted reports a checkout session whose payment settled.
type CheckoutCompleted struct {
	EventID   string
	SessionID string
}

// CheckoutExpired reports a checkout session that can no longer be paid.
type CheckoutExpired struct {
	EventID   string
	SessionID string
}

// Unrecognized is any other event; it is acknowledged and ignored.
type Unrecognized struct {
	EventID string
	Type    string
}

func (CheckoutCompleted) gatewayEvent() {}
func (CheckoutExpired) gatewayEvent()   {}
func (Unrecognized) gatewayEvent()      {}

func (e CheckoutCompleted) ID() string { return e.EventID }
func (e CheckoutExpired) ID() string   { return e.EventID }
func (e Unrecognized) ID() string      { return e.EventID }

// DecodeEvent maps a verified Stripe event onto a GatewayEvent.
func DecodeEvent(event *stripe.Event) (GatewayEvent, error) {
	if event == nil || event.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		session, err := decodeSession(event)
		if err != nil {
			return nil, err
		}
		// delayed payment methods complete the session before funds settle
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return Unrecognized{EventID: event.ID, Type: string(event.Type)}, nil
		}
		return CheckoutCompleted{EventID: event.ID, SessionID: session.ID}, nil
	case stripe.EventTypeCheckoutSessionExpired,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		session, err := decodeSession(event)
		if err != nil {
			return nil, err
		}
		return CheckoutExpired{EventID: event.ID, SessionID: session.ID}, nil
	default:
		return Unrecognized{EventID: event.ID, Type: string(event.Type)}, nil
	}
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	if session.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	return &session, nil
}
