package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Offering is a subject a teacher sells sessions for.
type Offering struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TeacherID uuid.UUID       `gorm:"column:teacher_id;type:uuid;not null;index"`
	Title     string          `gorm:"column:title;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Currency  string          `gorm:"column:currency;size:3;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (o *Offering) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
