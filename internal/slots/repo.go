package slots

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
)

// Repository persists teacher availability slots.
type Repository interface {
	Create(ctx context.Context, slot *models.Slot) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Slot, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Slot, error)
	SoftDelete(ctx context.Context, ownerID, slotID uuid.UUID, now time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, slot *models.Slot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

// FindByID returns non-deleted slots only.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Slot, error) {
	var slot models.Slot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Slot, error) {
	var slots []models.Slot
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("day_of_week ASC, start_time ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *repository) SoftDelete(ctx context.Context, ownerID, slotID uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ? AND owner_id = ?", slotID, ownerID).
		Update("deleted_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
