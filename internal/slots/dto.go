package slots

import (
	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
)

// CreateSlotInput describes a weekly availability window. Times are "HH:MM".
type CreateSlotInput struct {
	DayOfWeek int    `json:"dayOfWeek" validate:"min=0,max=6"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
}

type SlotDTO struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	DayOfWeek int       `json:"dayOfWeek"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
}

func FromModel(m *models.Slot) SlotDTO {
	return SlotDTO{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		DayOfWeek: m.DayOfWeek,
		StartTime: m.StartTime,
		EndTime:   m.EndTime,
	}
}
