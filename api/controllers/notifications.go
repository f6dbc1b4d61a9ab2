package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub-backend/api/responses"
	"github.com/tutorhub/tutorhub-backend/api/validators"
	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	pkgerrors "github.com/tutorhub/tutorhub-backend/pkg/errors"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
)

type notificationLister interface {
	ListByRecipient(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
}

// ListNotifications returns the caller's newest notifications.
func ListNotifications(repo notificationLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications unavailable"))
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := repo.ListByRecipient(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications"))
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type notificationReader interface {
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error)
}

// MarkNotificationRead stamps one of the caller's notifications as read.
func MarkNotificationRead(repo notificationReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications unavailable"))
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notificationID, err := validators.ParsePathUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := repo.MarkRead(r.Context(), userID, notificationID, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read"))
			return
		}
		responses.WriteSuccess(w, map[string]bool{"updated": updated})
	}
}
