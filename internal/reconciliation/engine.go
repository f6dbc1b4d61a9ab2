package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/internal/notifications"
	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/enums"
	pkgerrors "github.com/tutorhub/tutorhub-backend/pkg/errors"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
	"github.com/tutorhub/tutorhub-backend/pkg/metrics"
)

const (
	reasonSuperseded = "booking already settled by another checkout; refund required"
	reasonExpired    = "checkout session expired"
	fallbackTitle    = "your session"
)

type ledgerStore interface {
	FindByExternalRef(ctx context.Context, ref string) (*models.PaymentLedgerEntry, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentLedgerEntry, error)
	MarkPaid(ctx context.Context, id, bookingID uuid.UUID, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error)
}

type bookingStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ConfirmPayment(ctx context.Context, id uuid.UUID, paid, due decimal.Decimal, now time.Time) (bool, error)
}

type offeringReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offering, error)
}

type notifier interface {
	Dispatch(ctx context.Context, event notifications.Event) bool
}

// EngineParams groups the engine collaborators.
type EngineParams struct {
	Ledger    ledgerStore
	Bookings  bookingStore
	Offerings offeringReader
	Notifier  notifier
	Logger    *logger.Logger
	Metrics   *metrics.ReconcileMetrics
	Now       func() time.Time
}

// Engine applies gateway payment events to the ledger and bookings exactly
// once. Every status change is a conditional write, so concurrent deliveries
// of the same event need no in-process locking: whichever caller's write
// applies owns the follow-up work, the others observe the persisted state.
//
// The ledger and the booking are committed separately. A paid ledger entry is
// the durable record of payment; if the booking write fails afterwards the
// repair sweep replays RepairBooking for it.
type Engine struct {
	ledger    ledgerStore
	bookings  bookingStore
	offerings offeringReader
	notifier  notifier
	logg      *logger.Logger
	metrics   *metrics.ReconcileMetrics
	now       func() time.Time
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if params.Offerings == nil {
		return nil, fmt.Errorf("offering repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		ledger:    params.Ledger,
		bookings:  params.Bookings,
		offerings: params.Offerings,
		notifier:  params.Notifier,
		logg:      logg,
		metrics:   params.Metrics,
		now:       now,
	}, nil
}

// HandleCheckoutCompleted settles the ledger entry for ref and confirms its
// booking. A non-nil error means the attempt could not be classified or a
// referenced row is missing; terminal outcomes are reported in Result.
func (e *Engine) HandleCheckoutCompleted(ctx context.Context, ref string) (Result, error) {
	ctx = e.logg.WithField(ctx, "external_transaction_ref", ref)

	entry, err := e.ledger.FindByExternalRef(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result := Result{Outcome: OutcomeLedgerNotFound}
			err := pkgerrors.New(pkgerrors.CodeNotFound, "no ledger entry for checkout session")
			e.record(ctx, result, err)
			return result, err
		}
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	ctx = e.logg.WithBookingID(ctx, entry.BookingID.String())
	result := Result{LedgerEntryID: entry.ID, BookingID: entry.BookingID}

	if entry.Status == enums.LedgerStatusPaid {
		result.Outcome = OutcomeDuplicateDelivery
		e.record(ctx, result, nil)
		return result, nil
	}

	applied, err := e.ledger.MarkPaid(ctx, entry.ID, entry.BookingID, e.now().UTC())
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark ledger entry paid")
	}
	if !applied {
		return e.classifyUnappliedSettlement(ctx, result)
	}

	return e.confirmBooking(ctx, entry, result)
}

// RepairBooking re-runs booking confirmation for an entry that is already
// paid. It is safe to call repeatedly.
func (e *Engine) RepairBooking(ctx context.Context, entry models.PaymentLedgerEntry) (Result, error) {
	ctx = e.logg.WithFields(ctx, map[string]any{
		"external_transaction_ref": entry.ExternalTransactionRef,
		"booking_id":               entry.BookingID.String(),
		"repair":                   true,
	})
	result := Result{LedgerEntryID: entry.ID, BookingID: entry.BookingID}
	if entry.Status != enums.LedgerStatusPaid {
		return result, pkgerrors.New(pkgerrors.CodeStateConflict, "only paid ledger entries can be repaired")
	}
	return e.confirmBooking(ctx, &entry, result)
}

// HandleCheckoutExpired marks the pending entry for ref as failed. Bookings
// are left PENDING so the student can start a new checkout.
func (e *Engine) HandleCheckoutExpired(ctx context.Context, ref string) (Result, error) {
	ctx = e.logg.WithField(ctx, "external_transaction_ref", ref)

	entry, err := e.ledger.FindByExternalRef(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// sessions whose ledger write failed expire without a row
			result := Result{Outcome: OutcomeLedgerNotFound}
			e.logg.Warn(e.logg.WithField(ctx, "outcome", result.Outcome), "expired checkout has no ledger entry")
			e.metrics.IncOutcome(string(result.Outcome))
			return result, nil
		}
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	ctx = e.logg.WithBookingID(ctx, entry.BookingID.String())
	result := Result{LedgerEntryID: entry.ID, BookingID: entry.BookingID}

	applied, err := e.ledger.MarkFailed(ctx, entry.ID, reasonExpired, e.now().UTC())
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark ledger entry failed")
	}
	result.Outcome = OutcomeExpired
	if !applied {
		result.Outcome = OutcomeStaleEvent
	}
	e.record(ctx, result, nil)
	return result, nil
}

// classifyUnappliedSettlement re-reads an entry whose paid write did not apply.
func (e *Engine) classifyUnappliedSettlement(ctx context.Context, result Result) (Result, error) {
	current, err := e.ledger.FindByID(ctx, result.LedgerEntryID)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload ledger entry")
	}
	if current.Status == enums.LedgerStatusPaid {
		// a concurrent delivery of the same event won the write
		result.Outcome = OutcomeDuplicateDelivery
		e.record(ctx, result, nil)
		return result, nil
	}

	if _, err := e.ledger.MarkFailed(ctx, current.ID, reasonSuperseded, e.now().UTC()); err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark superseded entry failed")
	}
	result.Outcome = OutcomeSuperseded
	e.record(ctx, result, pkgerrors.New(pkgerrors.CodeConflict, reasonSuperseded))
	return result, nil
}

func (e *Engine) confirmBooking(ctx context.Context, entry *models.PaymentLedgerEntry, result Result) (Result, error) {
	booking, err := e.bookings.FindByID(ctx, entry.BookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result.Outcome = OutcomeBookingNotFound
			err := pkgerrors.New(pkgerrors.CodeNotFound, "booking for paid ledger entry not found")
			e.record(ctx, result, err)
			return result, err
		}
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}

	switch booking.Status {
	case enums.BookingStatusConfirmed:
		result.Outcome = OutcomeAlreadyConfirmed
		e.record(ctx, result, nil)
		return result, nil
	case enums.BookingStatusPending:
	default:
		return e.stateConflict(ctx, result, booking.Status)
	}

	paid := booking.PaidAmount.Add(entry.Amount)
	due := decimal.Max(booking.DueAmount.Sub(entry.Amount), decimal.Zero)
	now := e.now().UTC()
	applied, err := e.bookings.ConfirmPayment(ctx, booking.ID, paid, due, now)
	if err != nil {
		// ledger stays paid; the repair sweep retries confirmation
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm booking")
	}
	if !applied {
		current, err := e.bookings.FindByID(ctx, booking.ID)
		if err != nil {
			return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload booking")
		}
		if current.Status == enums.BookingStatusConfirmed {
			result.Outcome = OutcomeAlreadyConfirmed
			e.record(ctx, result, nil)
			return result, nil
		}
		return e.stateConflict(ctx, result, current.Status)
	}

	booking.Status = enums.BookingStatusConfirmed
	booking.PaidAmount = paid
	booking.DueAmount = due
	booking.UpdatedAt = now
	e.notifyConfirmed(ctx, booking)

	result.Outcome = OutcomeConfirmed
	e.record(ctx, result, nil)
	return result, nil
}

func (e *Engine) stateConflict(ctx context.Context, result Result, status enums.BookingStatus) (Result, error) {
	result.Outcome = OutcomeStateConflict
	ctx = e.logg.WithField(ctx, "booking_status", status)
	e.record(ctx, result, pkgerrors.New(pkgerrors.CodeStateConflict, "paid ledger entry for a booking that cannot be confirmed"))
	return result, nil
}

func (e *Engine) notifyConfirmed(ctx context.Context, booking *models.Booking) {
	title := fallbackTitle
	if offering, err := e.offerings.FindByID(ctx, booking.OfferingID); err == nil {
		title = offering.Title
	} else {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "offering lookup failed; using generic notification title")
	}
	for _, event := range notifications.BookingConfirmed(booking, title) {
		e.notifier.Dispatch(ctx, event)
	}
}

func (e *Engine) record(ctx context.Context, result Result, err error) {
	e.metrics.IncOutcome(string(result.Outcome))
	ctx = e.logg.WithField(ctx, "outcome", result.Outcome)
	switch result.Outcome {
	case OutcomeConfirmed, OutcomeExpired:
		e.logg.Info(ctx, "payment reconciled")
	case OutcomeDuplicateDelivery, OutcomeAlreadyConfirmed, OutcomeStaleEvent:
		e.logg.Info(ctx, "payment event already applied")
	default:
		e.logg.Error(ctx, "payment reconciliation needs attention", err)
	}
}
