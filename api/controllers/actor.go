package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub-backend/api/middleware"
	pkgerrors "github.com/tutorhub/tutorhub-backend/pkg/errors"
)

func actorID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.ActorIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}
