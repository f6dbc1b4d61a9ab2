package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/enums"
)

// CreateBookingInput captures a student's request for one slot occurrence.
type CreateBookingInput struct {
	OfferingID      uuid.UUID        `json:"offeringId" validate:"required"`
	SlotID          uuid.UUID        `json:"slotId" validate:"required"`
	BookingDateTime time.Time        `json:"bookingDateTime" validate:"required"`
	DiscountAmount  *decimal.Decimal `json:"discountAmount,omitempty"`
}

type BookingDTO struct {
	ID              uuid.UUID           `json:"id"`
	TeacherID       uuid.UUID           `json:"teacherId"`
	StudentID       uuid.UUID           `json:"studentId"`
	OfferingID      uuid.UUID           `json:"offeringId"`
	SlotID          uuid.UUID           `json:"slotId"`
	Status          enums.BookingStatus `json:"status"`
	BookingDateTime time.Time           `json:"bookingDateTime"`
	Currency        string              `json:"currency"`
	TotalAmount     decimal.Decimal     `json:"totalAmount"`
	PaidAmount      decimal.Decimal     `json:"paidAmount"`
	DueAmount       decimal.Decimal     `json:"dueAmount"`
	DiscountAmount  decimal.Decimal     `json:"discountAmount"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func FromModel(m *models.Booking) BookingDTO {
	return BookingDTO{
		ID:              m.ID,
		TeacherID:       m.TeacherID,
		StudentID:       m.StudentID,
		OfferingID:      m.OfferingID,
		SlotID:          m.SlotID,
		Status:          m.Status,
		BookingDateTime: m.BookingDateTime,
		Currency:        m.Currency,
		TotalAmount:     m.TotalAmount,
		PaidAmount:      m.PaidAmount,
		DueAmount:       m.DueAmount,
		DiscountAmount:  m.DiscountAmount,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
