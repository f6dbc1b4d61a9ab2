package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Slot is a recurring weekly availability window owned by a teacher.
// Rows are never updated; teachers soft-delete and recreate instead.
type Slot struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID      `gorm:"column:owner_id;type:uuid;not null;index"`
	DayOfWeek int            `gorm:"column:day_of_week;not null"`
	StartTime string         `gorm:"column:start_time;size:5;not null"`
	EndTime   string         `gorm:"column:end_time;size:5;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (s *Slot) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
