package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/tutorhub/tutorhub-backend/api/responses"
	pkgerrors "github.com/tutorhub/tutorhub-backend/pkg/errors"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
)

const (
	signatureHeader     = "Stripe-Signature"
	defaultMaxBodyBytes = int64(65536)
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

type received struct {
	Received bool `json:"received"`
}

// StripeWebhook verifies and ingests Stripe checkout events. Once a request
// is authenticated it is always acknowledged; reconciliation failures are
// logged and recovered by resends or the repair sweep.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard stripeWebhookGuard, maxBodyBytes int64, logg *logger.Logger) http.HandlerFunc {
	if logg == nil {
		logg = logger.Nop()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook payload too large"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(signatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, client.SigningSecret(), webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid stripe signature"))
			return
		}

		ctx = logg.WithFields(logg.WithEventID(ctx, event.ID), map[string]any{"event_type": string(event.Type)})

		if guard != nil {
			seen, err := guard.CheckAndMark(ctx, event.ID)
			if err != nil {
				// the conditional writes still deduplicate without the guard
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "webhook event guard unavailable")
			} else if seen {
				logg.Info(ctx, "stripe event already processed")
				responses.WriteSuccess(w, received{Received: true})
				return
			}
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			if guard != nil {
				if delErr := guard.Delete(ctx, event.ID); delErr != nil {
					logg.Warn(logg.WithField(ctx, "error", delErr.Error()), "clear webhook event guard")
				}
			}
			logg.Error(logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "stripe event handling failed", err)
			responses.WriteSuccess(w, received{Received: true})
			return
		}

		logg.Info(ctx, "stripe event processed")
		responses.WriteSuccess(w, received{Received: true})
	}
}
