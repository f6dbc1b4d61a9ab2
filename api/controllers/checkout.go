package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub-backend/api/responses"
	"github.com/tutorhub/tutorhub-backend/api/validators"
	"github.com/tutorhub/tutorhub-backend/internal/checkout"
	pkgerrors "github.com/tutorhub/tutorhub-backend/pkg/errors"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
)

type checkoutStarter interface {
	Start(ctx context.Context, studentID, bookingID uuid.UUID) (*checkout.StartResult, error)
}

type checkoutResponse struct {
	LedgerEntryID uuid.UUID `json:"ledgerEntryId"`
	SessionID     string    `json:"sessionId"`
	CheckoutURL   string    `json:"checkoutUrl"`
}

// StartCheckout opens a hosted payment session for a pending booking.
func StartCheckout(svc checkoutStarter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		studentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := validators.ParsePathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithBookingID(ctx, bookingID.String())
		}
		result, err := svc.Start(ctx, studentID, bookingID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			LedgerEntryID: result.LedgerEntryID,
			SessionID:     result.SessionID,
			CheckoutURL:   result.CheckoutURL,
		})
	}
}
