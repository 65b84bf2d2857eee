// Package delivery routes a notification request to the channel the
// recipient's contact details allow: email when an address is present,
// SMS otherwise. The attempt and its outcome are persisted either way.
package delivery

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/clinicdesk/clinicdesk/services/notification-service/internal/email"
	"github.com/clinicdesk/clinicdesk/services/notification-service/internal/sms"
	"github.com/clinicdesk/clinicdesk/services/notification-service/internal/storage"
)

// Request mirrors the JSON payload of clinic.notification.requested.v1
// events produced by the clinic service.
type Request struct {
	RecipientUserID string `json:"recipient_user_id"`
	RecipientEmail  string `json:"recipient_email,omitempty"`
	RecipientPhone  string `json:"recipient_phone,omitempty"`
	Message         string `json:"message"`
}

const emailSubject = "ClinicDesk appointment update"

type Store interface {
	Insert(ctx context.Context, n storage.Notification) (storage.Notification, error)
	UpdateStatus(ctx context.Context, id, status, failureReason string) error
}

type Dispatcher struct {
	store  Store
	email  email.Sender
	sms    sms.Sender
	logger *slog.Logger
}

func NewDispatcher(store Store, emailSender email.Sender, smsSender sms.Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, email: emailSender, sms: smsSender, logger: logger}
}

// Handle processes one notification request event. A malformed payload is
// logged and dropped; a storage failure is returned so the event is retried.
func (d *Dispatcher) Handle(ctx context.Context, appointmentID string, raw []byte) error {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		d.logger.Error("invalid notification payload", "err", err)
		return nil
	}
	if req.RecipientUserID == "" || req.Message == "" {
		d.logger.Error("missing notification fields", "appointment_id", appointmentID)
		return nil
	}

	channel, recipient := "email", req.RecipientEmail
	if recipient == "" {
		channel, recipient = "sms", req.RecipientPhone
	}

	n, err := d.store.Insert(ctx, storage.Notification{
		AppointmentID:   appointmentID,
		RecipientUserID: req.RecipientUserID,
		Channel:         channel,
		Recipient:       recipient,
		Message:         req.Message,
	})
	if err != nil {
		d.logger.Error("failed to persist notification", "err", err)
		return err
	}

	status := storage.StatusSent
	failureReason := ""
	switch {
	case recipient == "":
		status = storage.StatusFailed
		failureReason = "recipient has no contact details"
	case channel == "email":
		if err := d.email.Send(recipient, emailSubject, req.Message); err != nil {
			status = storage.StatusFailed
			failureReason = err.Error()
			d.logger.Error("email send failed", "err", err, "recipient", recipient)
		}
	default:
		if err := d.sms.Send(ctx, recipient, req.Message); err != nil {
			status = storage.StatusFailed
			failureReason = err.Error()
			d.logger.Error("sms send failed", "err", err, "recipient", recipient)
		}
	}

	if err := d.store.UpdateStatus(ctx, n.ID, status, failureReason); err != nil {
		d.logger.Error("failed to update notification status", "err", err)
		return err
	}

	d.logger.Info("notification processed",
		"appointment_id", appointmentID, "channel", channel, "status", status)
	return nil
}
