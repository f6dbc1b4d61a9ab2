package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/tutorhub/tutorhub-backend/internal/reconciliation"
	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
)

const (
	bookingRepairJobName     = "booking-confirmation-repair"
	defaultRepairGracePeriod = 2 * time.Minute
	defaultRepairBatchLimit  = 200
)

type paidUnconfirmedLister interface {
	ListPaidUnconfirmed(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentLedgerEntry, error)
}

type bookingRepairer interface {
	RepairBooking(ctx context.Context, entry models.PaymentLedgerEntry) (reconciliation.Result, error)
}

type BookingRepairJobParams struct {
	Logger      *logger.Logger
	Ledger      paidUnconfirmedLister
	Engine      bookingRepairer
	GracePeriod time.Duration
	BatchLimit  int
}

// NewBookingRepairJob confirms bookings whose payment was recorded but whose
// confirmation write never landed. The grace period leaves in-flight webhook
// handling alone.
func NewBookingRepairJob(params BookingRepairJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("reconciliation engine required")
	}
	grace := params.GracePeriod
	if grace <= 0 {
		grace = defaultRepairGracePeriod
	}
	limit := params.BatchLimit
	if limit <= 0 {
		limit = defaultRepairBatchLimit
	}
	return &bookingRepairJob{
		logg:   params.Logger,
		ledger: params.Ledger,
		engine: params.Engine,
		grace:  grace,
		limit:  limit,
		now:    time.Now,
	}, nil
}

type bookingRepairJob struct {
	logg   *logger.Logger
	ledger paidUnconfirmedLister
	engine bookingRepairer
	grace  time.Duration
	limit  int
	now    func() time.Time
}

func (j *bookingRepairJob) Name() string { return bookingRepairJobName }

func (j *bookingRepairJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	entries, err := j.ledger.ListPaidUnconfirmed(ctx, cutoff, j.limit)
	if err != nil {
		return fmt.Errorf("list paid unconfirmed entries: %w", err)
	}

	var (
		errs     error
		outcomes = map[reconciliation.Outcome]int{}
	)
	for _, entry := range entries {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		result, err := j.engine.RepairBooking(ctx, entry)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("ledger entry %s: %w", entry.ID, err))
			continue
		}
		outcomes[result.Outcome]++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(entries),
		"confirmed":  outcomes[reconciliation.OutcomeConfirmed],
		"conflicts":  outcomes[reconciliation.OutcomeStateConflict],
		"failures":   len(multierr.Errors(errs)),
	}), "booking repair sweep complete")
	return errs
}
