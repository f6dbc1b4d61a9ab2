package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/enums"
	pkgerrors "github.com/tutorhub/tutorhub-backend/pkg/errors"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
	pkgstripe "github.com/tutorhub/tutorhub-backend/pkg/stripe"
)

// Gateway opens hosted checkout sessions with the payment provider.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req pkgstripe.CheckoutRequest) (pkgstripe.CheckoutSession, error)
}

type bookingReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
}

type offeringReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offering, error)
}

type ledgerWriter interface {
	Create(ctx context.Context, entry *models.PaymentLedgerEntry) error
}

// StartResult is returned to the student to continue payment on the gateway.
type StartResult struct {
	LedgerEntryID uuid.UUID `json:"ledgerEntryId"`
	SessionID     string    `json:"sessionId"`
	CheckoutURL   string    `json:"checkoutUrl"`
}

// Initiator starts checkout for pending bookings.
type Initiator struct {
	bookings  bookingReader
	offerings offeringReader
	ledger    ledgerWriter
	gateway   Gateway
	logg      *logger.Logger
}

func NewInitiator(bookings bookingReader, offerings offeringReader, ledger ledgerWriter, gateway Gateway, logg *logger.Logger) (*Initiator, error) {
	if bookings == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if offerings == nil {
		return nil, fmt.Errorf("offering repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Initiator{bookings: bookings, offerings: offerings, ledger: ledger, gateway: gateway, logg: logg}, nil
}

// Start opens a gateway session for the booking's due amount and records a
// pending ledger entry keyed by the session id. The ledger row is written only
// after the gateway has issued a session.
func (i *Initiator) Start(ctx context.Context, studentID, bookingID uuid.UUID) (*StartResult, error) {
	ctx = i.logg.WithBookingID(ctx, bookingID.String())

	booking, err := i.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking.StudentID != studentID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the booking's student can pay for it")
	}
	if booking.Status != enums.BookingStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not awaiting payment").
			WithDetails(map[string]any{"status": booking.Status})
	}
	if !booking.DueAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking has no amount due")
	}

	title := "Tutoring session"
	offering, err := i.offerings.FindByID(ctx, booking.OfferingID)
	if err == nil {
		title = offering.Title
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offering")
	}

	session, err := i.gateway.CreateCheckoutSession(ctx, pkgstripe.CheckoutRequest{
		ReferenceID: booking.ID.String(),
		ProductName: title,
		AmountMinor: booking.DueAmount.Shift(2).Round(0).IntPart(),
		Currency:    booking.Currency,
		Metadata:    map[string]string{"booking_id": booking.ID.String()},
	})
	if err != nil {
		i.logg.Error(ctx, "create checkout session", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}

	entry := &models.PaymentLedgerEntry{
		BookingID:              booking.ID,
		Amount:                 booking.DueAmount,
		Currency:               booking.Currency,
		PaymentMethod:          enums.PaymentMethodCard,
		ExternalTransactionRef: session.ID,
	}
	if err := i.ledger.Create(ctx, entry); err != nil {
		// the orphaned session expires on the gateway side
		i.logg.Error(i.logg.WithField(ctx, "external_transaction_ref", session.ID), "record ledger entry", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment attempt")
	}

	i.logg.Info(i.logg.WithField(ctx, "external_transaction_ref", session.ID), "checkout started")
	return &StartResult{
		LedgerEntryID: entry.ID,
		SessionID:     session.ID,
		CheckoutURL:   session.URL,
	}, nil
}
