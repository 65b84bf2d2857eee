package notify

import (
	"testing"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

var (
	patient    = model.User{ID: "user-pat", Email: "pat@example.com", Phone: "+15550001"}
	doctorUser = model.User{ID: "user-doc", Email: "doc@example.com", Phone: "+15550002"}
)

func TestCancellationRecipient_PatientCancelsNotifiesDoctor(t *testing.T) {
	got, byPatient := CancellationRecipient(patient.ID, patient, doctorUser)
	if !byPatient {
		t.Fatal("canceller matching the patient must report a patient cancellation")
	}
	if got.ID != doctorUser.ID {
		t.Fatalf("recipient = %s, want the doctor's user %s", got.ID, doctorUser.ID)
	}
}

func TestCancellationRecipient_DoctorCancelsNotifiesPatient(t *testing.T) {
	got, byPatient := CancellationRecipient(doctorUser.ID, patient, doctorUser)
	if byPatient {
		t.Fatal("canceller other than the patient must not report a patient cancellation")
	}
	if got.ID != patient.ID {
		t.Fatalf("recipient = %s, want the patient %s", got.ID, patient.ID)
	}
}

func TestCancellationRecipient_AdminCancelsNotifiesPatient(t *testing.T) {
	got, _ := CancellationRecipient("user-admin", patient, doctorUser)
	if got.ID != patient.ID {
		t.Fatalf("recipient = %s, want the patient %s", got.ID, patient.ID)
	}
}

func TestRequestFor_CopiesContactDetails(t *testing.T) {
	req := RequestFor(doctorUser, "hello")
	if req.RecipientUserID != doctorUser.ID || req.RecipientEmail != doctorUser.Email ||
		req.RecipientPhone != doctorUser.Phone || req.Message != "hello" {
		t.Fatalf("unexpected request %+v", req)
	}
}
