package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/pkg/enums"
)

// Booking is a scheduled session between a student and a teacher on a slot.
type Booking struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TeacherID       uuid.UUID           `gorm:"column:teacher_id;type:uuid;not null;index"`
	StudentID       uuid.UUID           `gorm:"column:student_id;type:uuid;not null;index"`
	OfferingID      uuid.UUID           `gorm:"column:offering_id;type:uuid;not null"`
	SlotID          uuid.UUID           `gorm:"column:slot_id;type:uuid;not null"`
	Status          enums.BookingStatus `gorm:"column:status;size:16;not null;default:PENDING"`
	BookingDateTime time.Time           `gorm:"column:booking_date_time;not null"`
	Currency        string              `gorm:"column:currency;size:3;not null"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaidAmount      decimal.Decimal     `gorm:"column:paid_amount;type:numeric(12,2);not null"`
	DueAmount       decimal.Decimal     `gorm:"column:due_amount;type:numeric(12,2);not null"`
	DiscountAmount  decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt       gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	if b.Status == "" {
		b.Status = enums.BookingStatusPending
	}
	return nil
}

// HasParty reports whether userID is the booking's student or teacher.
func (b *Booking) HasParty(userID uuid.UUID) bool {
	return userID != uuid.Nil && (b.StudentID == userID || b.TeacherID == userID)
}
