package slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	pkgerrors "github.com/tutorhub/tutorhub-backend/pkg/errors"
)

const clockLayout = "15:04"

// Service manages a teacher's slots. Slots cannot be edited; teachers delete
// and recreate them so bookings keep pointing at the window they were made for.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateSlotInput) (*SlotDTO, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]SlotDTO, error)
	Get(ctx context.Context, slotID uuid.UUID) (*models.Slot, error)
	Delete(ctx context.Context, ownerID, slotID uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("slot repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateSlotInput) (*SlotDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if input.DayOfWeek < 0 || input.DayOfWeek > 6 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dayOfWeek must be between 0 and 6")
	}
	start, err := time.Parse(clockLayout, input.StartTime)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "startTime must be HH:MM")
	}
	end, err := time.Parse(clockLayout, input.EndTime)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "endTime must be HH:MM")
	}
	if !start.Before(end) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "startTime must be before endTime")
	}

	slot := &models.Slot{
		OwnerID:   ownerID,
		DayOfWeek: input.DayOfWeek,
		StartTime: start.Format(clockLayout),
		EndTime:   end.Format(clockLayout),
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create slot")
	}
	dto := FromModel(slot)
	return &dto, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]SlotDTO, error) {
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list slots")
	}
	out := make([]SlotDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, slotID uuid.UUID) (*models.Slot, error) {
	slot, err := s.repo.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "slot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load slot")
	}
	return slot, nil
}

func (s *service) Delete(ctx context.Context, ownerID, slotID uuid.UUID) error {
	removed, err := s.repo.SoftDelete(ctx, ownerID, slotID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete slot")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "slot not found")
	}
	return nil
}
