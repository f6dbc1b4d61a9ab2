// Package offerings reads the subjects teachers sell sessions for.
package offerings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
)

type Repository interface {
	Create(ctx context.Context, offering *models.Offering) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offering, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, offering *models.Offering) error {
	return r.db.WithContext(ctx).Create(offering).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Offering, error) {
	var offering models.Offering
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&offering).Error; err != nil {
		return nil, err
	}
	return &offering, nil
}
