package notify

import "github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"

// Request is the payload of a notification outbox event. The clinic core
// resolves recipient contact details at write time so the notification
// service never has to call back.
type Request struct {
	RecipientUserID string `json:"recipient_user_id"`
	RecipientEmail  string `json:"recipient_email,omitempty"`
	RecipientPhone  string `json:"recipient_phone,omitempty"`
	Message         string `json:"message"`
}

// RequestFor addresses a message to u.
func RequestFor(u model.User, message string) Request {
	return Request{
		RecipientUserID: u.ID,
		RecipientEmail:  u.Email,
		RecipientPhone:  u.Phone,
		Message:         message,
	}
}

// CancellationRecipient picks the counterpart of the canceller: the doctor's
// user when the patient cancelled, the patient otherwise. The second result
// reports whether the patient cancelled.
func CancellationRecipient(cancellerID string, patient, doctorUser model.User) (model.User, bool) {
	if cancellerID == patient.ID {
		return doctorUser, true
	}
	return patient, false
}
