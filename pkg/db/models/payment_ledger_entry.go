package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/pkg/enums"
)

// PaymentLedgerEntry records one checkout attempt for a booking, keyed by the
// gateway's transaction reference.
type PaymentLedgerEntry struct {
	ID                     uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BookingID              uuid.UUID           `gorm:"column:booking_id;type:uuid;not null;index"`
	Amount                 decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency               string              `gorm:"column:currency;size:3;not null"`
	PaymentMethod          enums.PaymentMethod `gorm:"column:payment_method;size:32;not null"`
	ExternalTransactionRef string              `gorm:"column:external_transaction_ref;not null;uniqueIndex:ux_ledger_external_ref"`
	Status                 enums.LedgerStatus  `gorm:"column:status;size:16;not null;default:pending"`
	ProcessedAt            *time.Time          `gorm:"column:processed_at"`
	FailureReason          *string             `gorm:"column:failure_reason"`
	CreatedAt              time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentLedgerEntry) TableName() string {
	return "payment_ledger_entries"
}

func (p *PaymentLedgerEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Status == "" {
		p.Status = enums.LedgerStatusPending
	}
	return nil
}
