// Package notify composes the one-way messages the appointment lifecycle
// hands to the notification sink. The wording is part of the contract: the
// cancellation message states which side cancelled.
package notify

import (
	"fmt"
	"time"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/clock"
)

// EventTopic is the outbox event type for notification requests.
const EventTopic = "clinic.notification.requested.v1"

func BookingMessage(patientName string, slotStart time.Time) string {
	return fmt.Sprintf("New appointment with %s at %s on %s.",
		patientName, clock.FormatClock(slotStart), clock.FormatDate(slotStart))
}

func CancellationMessage(byPatient bool, slotStart time.Time, reason string) string {
	side := "doctor"
	if byPatient {
		side = "patient"
	}
	msg := fmt.Sprintf("Appointment at %s on %s was cancelled by %s.",
		clock.FormatClock(slotStart), clock.FormatDate(slotStart), side)
	if reason != "" {
		msg += " Reason: " + reason
	}
	return msg
}
