package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/pkg/db"
	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/enums"
)

// Repository manages persistence for payment ledger entries. Status changes
// are conditional writes evaluated against the row at write time.
type Repository interface {
	Create(ctx context.Context, entry *models.PaymentLedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentLedgerEntry, error)
	FindByExternalRef(ctx context.Context, ref string) (*models.PaymentLedgerEntry, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentLedgerEntry, error)
	MarkPaid(ctx context.Context, id, bookingID uuid.UUID, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error)
	ListPaidUnconfirmed(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentLedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *models.PaymentLedgerEntry) error {
	if entry == nil {
		return fmt.Errorf("ledger entry required")
	}
	if strings.TrimSpace(entry.ExternalTransactionRef) == "" {
		return fmt.Errorf("external transaction ref required")
	}
	entry.Status = enums.LedgerStatusPending
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentLedgerEntry, error) {
	var entry models.PaymentLedgerEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByExternalRef(ctx context.Context, ref string) (*models.PaymentLedgerEntry, error) {
	var entry models.PaymentLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("external_transaction_ref = ?", ref).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentLedgerEntry, error) {
	var entries []models.PaymentLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkPaid settles the entry when it is still pending or failed and no other
// entry of the booking is paid. It reports whether this call applied the change.
func (r *repository) MarkPaid(ctx context.Context, id, bookingID uuid.UUID, now time.Time) (bool, error) {
	otherPaid := r.db.Model(&models.PaymentLedgerEntry{}).
		Select("1").
		Where("booking_id = ? AND status = ? AND id <> ?", bookingID, string(enums.LedgerStatusPaid), id)

	result := r.db.WithContext(ctx).
		Model(&models.PaymentLedgerEntry{}).
		Where("id = ? AND booking_id = ?", id, bookingID).
		Where("status IN ?", []string{string(enums.LedgerStatusPending), string(enums.LedgerStatusFailed)}).
		Where("NOT EXISTS (?)", otherPaid).
		Updates(map[string]any{
			"status":         string(enums.LedgerStatusPaid),
			"processed_at":   now,
			"failure_reason": nil,
			"updated_at":     now,
		})
	if result.Error != nil {
		// a concurrent settlement of a sibling entry won the partial unique index
		if db.IsUniqueViolation(result.Error, "") {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed records a failure on a pending entry.
func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentLedgerEntry{}).
		Where("id = ? AND status = ?", id, string(enums.LedgerStatusPending)).
		Updates(map[string]any{
			"status":         string(enums.LedgerStatusFailed),
			"failure_reason": reason,
			"processed_at":   now,
			"updated_at":     now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListPaidUnconfirmed returns paid entries settled before olderThan whose
// booking is still pending, oldest first.
func (r *repository) ListPaidUnconfirmed(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentLedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []models.PaymentLedgerEntry
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentLedgerEntry{}).
		Select("payment_ledger_entries.*").
		Joins("JOIN bookings ON bookings.id = payment_ledger_entries.booking_id").
		Where("payment_ledger_entries.status = ?", string(enums.LedgerStatusPaid)).
		Where("bookings.status = ? AND bookings.deleted_at IS NULL", string(enums.BookingStatusPending)).
		Where("payment_ledger_entries.processed_at <= ?", olderThan).
		Order("payment_ledger_entries.processed_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
