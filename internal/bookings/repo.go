package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/enums"
)

// Repository persists bookings. Status changes are compare-and-set updates
// keyed on the current status so concurrent writers cannot both win.
type Repository interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.BookingStatus, now time.Time) (bool, error)
	ConfirmPayment(ctx context.Context, id uuid.UUID, paid, due decimal.Decimal, now time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// TransitionStatus moves the booking from -> to only while it is still in from.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.BookingStatus, now time.Time) (bool, error) {
	return r.compareAndSet(ctx, id, from, to, map[string]any{"updated_at": now})
}

// ConfirmPayment is the PENDING -> CONFIRMED edge carrying the settled amounts.
func (r *repository) ConfirmPayment(ctx context.Context, id uuid.UUID, paid, due decimal.Decimal, now time.Time) (bool, error) {
	return r.compareAndSet(ctx, id, enums.BookingStatusPending, enums.BookingStatusConfirmed, map[string]any{
		"paid_amount": paid,
		"due_amount":  due,
		"updated_at":  now,
	})
}

func (r *repository) compareAndSet(ctx context.Context, id uuid.UUID, from, to enums.BookingStatus, changes map[string]any) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("booking transition %s -> %s not allowed", from, to)
	}
	changes["status"] = string(to)
	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(changes)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
