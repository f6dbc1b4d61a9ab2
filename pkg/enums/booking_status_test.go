package enums

import "testing"

func TestBookingStatusTransitions(t *testing.T) {
	allowed := map[[2]BookingStatus]bool{
		{BookingStatusPending, BookingStatusConfirmed}:   true,
		{BookingStatusPending, BookingStatusCancelled}:   true,
		{BookingStatusConfirmed, BookingStatusCompleted}: true,
	}
	for _, from := range validBookingStatuses {
		for _, to := range validBookingStatuses {
			got := from.CanTransitionTo(to)
			if got != allowed[[2]BookingStatus{from, to}] {
				t.Fatalf("transition %s -> %s: expected %v got %v", from, to, !got, got)
			}
		}
	}
}

func TestConfirmedNeverRegresses(t *testing.T) {
	for _, next := range []BookingStatus{BookingStatusPending, BookingStatusCancelled} {
		if BookingStatusConfirmed.CanTransitionTo(next) {
			t.Fatalf("confirmed booking must not move to %s", next)
		}
	}
	if BookingStatusCancelled.CanTransitionTo(BookingStatusConfirmed) {
		t.Fatalf("cancelled booking must not be confirmed")
	}
}

func TestParseBookingStatus(t *testing.T) {
	status, err := ParseBookingStatus("CONFIRMED")
	if err != nil || status != BookingStatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %q err=%v", status, err)
	}
	if _, err := ParseBookingStatus("confirmed"); err == nil {
		t.Fatalf("expected case-sensitive parse to fail")
	}
	if !BookingStatusPending.IsActive() || BookingStatusCancelled.IsActive() {
		t.Fatalf("unexpected active flags")
	}
}
