package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub-backend/api/responses"
	"github.com/tutorhub/tutorhub-backend/api/validators"
	"github.com/tutorhub/tutorhub-backend/internal/bookings"
	pkgerrors "github.com/tutorhub/tutorhub-backend/pkg/errors"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
)

func CreateBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		studentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input bookings.CreateBookingInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Create(r.Context(), studentID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, booking)
	}
}

func GetBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingAction(svc, logg, func(ctx context.Context, actor, bookingID uuid.UUID) (*bookings.BookingDTO, error) {
		return svc.Get(ctx, actor, bookingID)
	})
}

func CancelBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingAction(svc, logg, func(ctx context.Context, actor, bookingID uuid.UUID) (*bookings.BookingDTO, error) {
		return svc.Cancel(ctx, actor, bookingID)
	})
}

func CompleteBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingAction(svc, logg, func(ctx context.Context, actor, bookingID uuid.UUID) (*bookings.BookingDTO, error) {
		return svc.Complete(ctx, actor, bookingID)
	})
}

func bookingAction(svc bookings.Service, logg *logger.Logger, action func(ctx context.Context, actor, bookingID uuid.UUID) (*bookings.BookingDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		actor, err := actorID(r)
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
		booking, err := action(ctx, actor, bookingID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}
