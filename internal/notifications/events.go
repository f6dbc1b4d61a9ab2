package notifications

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/enums"
)

const (
	studentSchedulePath = "/student/schedule"
	teacherSchedulePath = "/teacher/schedule"
	sessionTimeLayout   = "Mon, 02 Jan 2006 15:04 MST"
)

// Event is one notification addressed to a single user.
type Event struct {
	RecipientUserID uuid.UUID
	Type            enums.NotificationType
	Title           string
	Message         string
	RedirectPath    string
	RedirectParams  map[string]string
}

// BookingConfirmed builds the student and teacher notices for a freshly
// confirmed booking, in that order.
func BookingConfirmed(booking *models.Booking, offeringTitle string) []Event {
	when := booking.BookingDateTime.UTC().Format(sessionTimeLayout)
	params := map[string]string{"bookingId": booking.ID.String()}
	return []Event{
		{
			RecipientUserID: booking.StudentID,
			Type:            enums.NotificationTypeBookingConfirmed,
			Title:           "Booking confirmed",
			Message:         fmt.Sprintf("Your booking for %s on %s is confirmed.", offeringTitle, when),
			RedirectPath:    studentSchedulePath,
			RedirectParams:  params,
		},
		{
			RecipientUserID: booking.TeacherID,
			Type:            enums.NotificationTypeNewBooking,
			Title:           "New booking",
			Message:         fmt.Sprintf("You have a new confirmed booking for %s on %s.", offeringTitle, when),
			RedirectPath:    teacherSchedulePath,
			RedirectParams:  params,
		},
	}
}

// BookingCancelled notifies the party that did not cancel.
func BookingCancelled(booking *models.Booking, offeringTitle string, cancelledBy uuid.UUID) []Event {
	when := booking.BookingDateTime.UTC().Format(sessionTimeLayout)
	params := map[string]string{"bookingId": booking.ID.String()}
	recipient, path := booking.TeacherID, teacherSchedulePath
	if cancelledBy == booking.TeacherID {
		recipient, path = booking.StudentID, studentSchedulePath
	}
	return []Event{{
		RecipientUserID: recipient,
		Type:            enums.NotificationTypeBookingCancelled,
		Title:           "Booking cancelled",
		Message:         fmt.Sprintf("The booking for %s on %s was cancelled.", offeringTitle, when),
		RedirectPath:    path,
		RedirectParams:  params,
	}}
}
