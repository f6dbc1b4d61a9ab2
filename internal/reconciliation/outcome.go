package reconciliation

import "github.com/google/uuid"

// Outcome classifies how a reconciliation attempt ended. Each value is logged
// under the "outcome" field and counted separately so duplicate deliveries
// can be told apart from data-integrity problems.
type Outcome string

const (
	OutcomeConfirmed         Outcome = "confirmed"
	OutcomeDuplicateDelivery Outcome = "duplicate_delivery"
	OutcomeAlreadyConfirmed  Outcome = "already_confirmed"
	OutcomeLedgerNotFound    Outcome = "ledger_not_found"
	OutcomeBookingNotFound   Outcome = "booking_not_found"
	// OutcomeSuperseded means another entry of the booking was already paid;
	// the captured funds need a refund.
	OutcomeSuperseded Outcome = "superseded"
	// OutcomeStateConflict means the ledger is paid but the booking left
	// PENDING for a state other than CONFIRMED.
	OutcomeStateConflict Outcome = "state_conflict"
	OutcomeExpired       Outcome = "expired"
	OutcomeStaleEvent    Outcome = "stale_event"
)

// Result describes a single reconciliation attempt.
type Result struct {
	Outcome       Outcome
	LedgerEntryID uuid.UUID
	BookingID     uuid.UUID
}
