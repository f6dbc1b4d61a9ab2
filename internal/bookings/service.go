package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/internal/notifications"
	"github.com/tutorhub/tutorhub-backend/pkg/db"
	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/enums"
	pkgerrors "github.com/tutorhub/tutorhub-backend/pkg/errors"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
)

type offeringReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offering, error)
}

type slotReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Slot, error)
}

type notifier interface {
	Dispatch(ctx context.Context, event notifications.Event) bool
}

// Service exposes the booking flows that sit outside payment reconciliation.
type Service interface {
	Create(ctx context.Context, studentID uuid.UUID, input CreateBookingInput) (*BookingDTO, error)
	Get(ctx context.Context, actorID, bookingID uuid.UUID) (*BookingDTO, error)
	Cancel(ctx context.Context, actorID, bookingID uuid.UUID) (*BookingDTO, error)
	Complete(ctx context.Context, teacherID, bookingID uuid.UUID) (*BookingDTO, error)
}

// ServiceParams groups the booking service collaborators.
type ServiceParams struct {
	Repo      Repository
	Offerings offeringReader
	Slots     slotReader
	Notifier  notifier
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	offerings offeringReader
	slots     slotReader
	notifier  notifier
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if params.Offerings == nil {
		return nil, fmt.Errorf("offering repository required")
	}
	if params.Slots == nil {
		return nil, fmt.Errorf("slot repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      params.Repo,
		offerings: params.Offerings,
		slots:     params.Slots,
		notifier:  params.Notifier,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, studentID uuid.UUID, input CreateBookingInput) (*BookingDTO, error) {
	if studentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "student id is required")
	}

	offering, err := s.offerings.FindByID(ctx, input.OfferingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offering not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offering")
	}
	slot, err := s.slots.FindByID(ctx, input.SlotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "slot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load slot")
	}
	if slot.OwnerID != offering.TeacherID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot does not belong to the offering's teacher")
	}
	if studentID == offering.TeacherID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "teachers cannot book their own offerings")
	}

	// slots are weekly windows expressed in UTC
	when := input.BookingDateTime.UTC().Truncate(time.Minute)
	if !when.After(s.now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bookingDateTime must be in the future")
	}
	if int(when.Weekday()) != slot.DayOfWeek || when.Format("15:04") != slot.StartTime {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bookingDateTime does not match the slot").
			WithDetails(map[string]any{"dayOfWeek": slot.DayOfWeek, "startTime": slot.StartTime})
	}

	discount := decimal.Zero
	if input.DiscountAmount != nil {
		discount = *input.DiscountAmount
	}
	if discount.IsNegative() || discount.GreaterThan(offering.Price) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discountAmount must be between 0 and the offering price")
	}

	booking := &models.Booking{
		TeacherID:       offering.TeacherID,
		StudentID:       studentID,
		OfferingID:      offering.ID,
		SlotID:          slot.ID,
		Status:          enums.BookingStatusPending,
		BookingDateTime: when,
		Currency:        offering.Currency,
		TotalAmount:     offering.Price,
		PaidAmount:      decimal.Zero,
		DiscountAmount:  discount,
		DueAmount:       offering.Price.Sub(discount),
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slot already booked for that time")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
	}

	dto := FromModel(booking)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, actorID, bookingID uuid.UUID) (*BookingDTO, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.HasParty(actorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this booking")
	}
	dto := FromModel(booking)
	return &dto, nil
}

func (s *service) Cancel(ctx context.Context, actorID, bookingID uuid.UUID) (*BookingDTO, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.HasParty(actorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this booking")
	}

	updated, err := s.transition(ctx, booking, enums.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}

	title := "your session"
	if offering, err := s.offerings.FindByID(ctx, booking.OfferingID); err == nil {
		title = offering.Title
	}
	for _, event := range notifications.BookingCancelled(updated, title, actorID) {
		s.notifier.Dispatch(ctx, event)
	}

	dto := FromModel(updated)
	return &dto, nil
}

func (s *service) Complete(ctx context.Context, teacherID, bookingID uuid.UUID) (*BookingDTO, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if teacherID == uuid.Nil || booking.TeacherID != teacherID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the teacher can complete a booking")
	}
	updated, err := s.transition(ctx, booking, enums.BookingStatusCompleted)
	if err != nil {
		return nil, err
	}
	dto := FromModel(updated)
	return &dto, nil
}

func (s *service) load(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	return booking, nil
}

func (s *service) transition(ctx context.Context, booking *models.Booking, to enums.BookingStatus) (*models.Booking, error) {
	if !booking.Status.CanTransitionTo(to) {
		return nil, stateConflict(booking.Status, to)
	}
	applied, err := s.repo.TransitionStatus(ctx, booking.ID, booking.Status, to, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking status")
	}
	current, err := s.load(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if !applied {
		s.logg.Warn(s.logg.WithBookingID(ctx, booking.ID.String()), "booking status changed concurrently")
		return nil, stateConflict(current.Status, to)
	}
	return current, nil
}

func stateConflict(from, to enums.BookingStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("booking cannot move from %s to %s", from, to)).
		WithDetails(map[string]any{"status": from, "requested": to})
}
