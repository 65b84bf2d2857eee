package notify

import (
	"strings"
	"testing"
	"time"
)

var slotStart = time.Date(2026, 9, 12, 9, 30, 0, 0, time.UTC)

func TestBookingMessage(t *testing.T) {
	msg := BookingMessage("Ana Petrov", slotStart)
	for _, want := range []string{"Ana Petrov", "09:30", "2026-09-12"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestCancellationMessage_ByPatient(t *testing.T) {
	msg := CancellationMessage(true, slotStart, "travel")
	if !strings.Contains(msg, "cancelled by patient") {
		t.Fatalf("expected patient wording, got %q", msg)
	}
	if strings.Contains(msg, "cancelled by doctor") {
		t.Fatalf("message must not mention doctor cancellation: %q", msg)
	}
	for _, want := range []string{"09:30", "2026-09-12", "travel"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestCancellationMessage_ByDoctor(t *testing.T) {
	msg := CancellationMessage(false, slotStart, "")
	if !strings.Contains(msg, "cancelled by doctor") {
		t.Fatalf("expected doctor wording, got %q", msg)
	}
	if strings.Contains(msg, "Reason:") {
		t.Fatalf("empty reason should not be rendered: %q", msg)
	}
}
