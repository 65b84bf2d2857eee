package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/notify"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/outbox"
)

type BookParams struct {
	SlotID       string
	PatientID    string
	PatientName  string
	PatientPhone string
}

// Book transitions the slot AVAILABLE -> BOOKED, creates the appointment, and
// queues the doctor's notification, all in one transaction. The slot row is
// locked first; the status transition is additionally guarded with a
// conditional update so two concurrent bookings cannot both win.
func (r *Repository) Book(ctx context.Context, p BookParams) (model.Appointment, model.Slot, error) {
	patient, err := r.GetUser(ctx, p.PatientID)
	if err != nil {
		return model.Appointment{}, model.Slot{}, err
	}
	if p.PatientName == "" {
		p.PatientName = patient.Name
	}
	if p.PatientPhone == "" {
		p.PatientPhone = patient.Phone
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, model.Slot{}, internal(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	slot, err := scanSlot(tx.QueryRow(ctx, `
		SELECT`+slotColumns+`
		FROM slots s
		WHERE s.id = $1
		FOR UPDATE
	`, p.SlotID))
	if err != nil {
		if isNoRows(err) {
			return model.Appointment{}, model.Slot{}, apperr.NotFound("slot %s not found", p.SlotID)
		}
		return model.Appointment{}, model.Slot{}, internal(err)
	}
	if slot.Status != model.SlotAvailable {
		return model.Appointment{}, model.Slot{}, apperr.Conflict("slot %s is %s and cannot be booked", slot.ID, slot.Status)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE slots
		SET status = $2
		WHERE id = $1 AND status = $3
	`, slot.ID, model.SlotBooked, model.SlotAvailable)
	if err != nil {
		return model.Appointment{}, model.Slot{}, internal(err)
	}
	if tag.RowsAffected() == 0 {
		return model.Appointment{}, model.Slot{}, apperr.Conflict("slot %s was booked concurrently", slot.ID)
	}
	slot.Status = model.SlotBooked

	appt := model.Appointment{
		ID:           uuid.NewString(),
		SlotID:       slot.ID,
		PatientID:    patient.ID,
		PatientName:  p.PatientName,
		PatientPhone: p.PatientPhone,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (id, slot_id, patient_id, patient_name, patient_phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, appt.ID, appt.SlotID, appt.PatientID, appt.PatientName, appt.PatientPhone).Scan(&appt.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Appointment{}, model.Slot{}, apperr.Conflict("slot %s already has an appointment", slot.ID)
		}
		return model.Appointment{}, model.Slot{}, internal(err)
	}

	owner, err := doctorOwner(ctx, tx, slot.DoctorID)
	if err != nil {
		return model.Appointment{}, model.Slot{}, err
	}
	if err := r.queueNotification(ctx, tx, appt.ID,
		notify.RequestFor(owner, notify.BookingMessage(appt.PatientName, slot.StartAt)),
	); err != nil {
		return model.Appointment{}, model.Slot{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, model.Slot{}, internal(err)
	}
	return appt, slot, nil
}

type CancelParams struct {
	AppointmentID string
	ByUserID      string
	Reason        string
}

// Cancel records the cancellation exactly once, restores the slot, and queues
// the counterpart's notification: the doctor's user when the patient cancels,
// the patient otherwise.
func (r *Repository) Cancel(ctx context.Context, p CancelParams) (model.Appointment, error) {
	canceller, err := r.GetUser(ctx, p.ByUserID)
	if err != nil {
		return model.Appointment{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, internal(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var appt model.Appointment
	var cancelledBy, cancelReason *string
	err = tx.QueryRow(ctx, `
		SELECT id::text, slot_id::text, patient_id::text, patient_name, patient_phone,
			cancelled_by::text, cancelled_at, cancellation_reason, created_at
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, p.AppointmentID).Scan(
		&appt.ID, &appt.SlotID, &appt.PatientID, &appt.PatientName, &appt.PatientPhone,
		&cancelledBy, &appt.CancelledAt, &cancelReason, &appt.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return model.Appointment{}, apperr.NotFound("appointment %s not found", p.AppointmentID)
		}
		return model.Appointment{}, internal(err)
	}
	if cancelledBy != nil {
		appt.CancelledBy = *cancelledBy
	}
	if cancelReason != nil {
		appt.CancelReason = *cancelReason
	}
	if appt.Cancelled() {
		return model.Appointment{}, apperr.Conflict("appointment %s is already cancelled", appt.ID)
	}

	var cancelledAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE appointments
		SET cancelled_by = $2, cancelled_at = now(), cancellation_reason = $3
		WHERE id = $1 AND cancelled_at IS NULL
		RETURNING cancelled_at
	`, appt.ID, canceller.ID, p.Reason).Scan(&cancelledAt)
	if err != nil {
		if isNoRows(err) {
			return model.Appointment{}, apperr.Conflict("appointment %s is already cancelled", appt.ID)
		}
		return model.Appointment{}, internal(err)
	}
	appt.CancelledBy = canceller.ID
	appt.CancelledAt = &cancelledAt
	appt.CancelReason = p.Reason

	slot, err := scanSlot(tx.QueryRow(ctx, `
		SELECT`+slotColumns+`
		FROM slots s
		WHERE s.id = $1
		FOR UPDATE
	`, appt.SlotID))
	if err != nil {
		return model.Appointment{}, internal(err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE slots SET status = $2 WHERE id = $1
	`, slot.ID, model.SlotAvailable); err != nil {
		return model.Appointment{}, internal(err)
	}

	doctorUser, err := doctorOwner(ctx, tx, slot.DoctorID)
	if err != nil {
		return model.Appointment{}, err
	}
	patientUser := canceller
	if canceller.ID != appt.PatientID {
		patientUser, err = userByIDTx(ctx, tx, appt.PatientID)
		if err != nil {
			return model.Appointment{}, err
		}
	}
	recipient, byPatient := notify.CancellationRecipient(canceller.ID, patientUser, doctorUser)
	if err := r.queueNotification(ctx, tx, appt.ID,
		notify.RequestFor(recipient, notify.CancellationMessage(byPatient, slot.StartAt, p.Reason)),
	); err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, internal(err)
	}
	return appt, nil
}

// ListAppointments returns appointments ordered by their slot's start time.
// Empty filter values match everything.
func (r *Repository) ListAppointments(ctx context.Context, patientID, doctorID string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id::text, a.slot_id::text, a.patient_id::text, a.patient_name, a.patient_phone,
			COALESCE(a.cancelled_by::text, ''), a.cancelled_at, COALESCE(a.cancellation_reason, ''), a.created_at
		FROM appointments a
		JOIN slots s ON s.id = a.slot_id
		WHERE ($1 = '' OR a.patient_id::text = $1)
			AND ($2 = '' OR s.doctor_id::text = $2)
		ORDER BY s.start_at ASC, a.id ASC
	`, patientID, doctorID)
	if err != nil {
		return nil, internal(err)
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(
			&a.ID, &a.SlotID, &a.PatientID, &a.PatientName, &a.PatientPhone,
			&a.CancelledBy, &a.CancelledAt, &a.CancelReason, &a.CreatedAt,
		); err != nil {
			return nil, internal(err)
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, internal(rows.Err())
	}
	return out, nil
}

func (r *Repository) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	var a model.Appointment
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, slot_id::text, patient_id::text, patient_name, patient_phone,
			COALESCE(cancelled_by::text, ''), cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM appointments
		WHERE id = $1
	`, id).Scan(
		&a.ID, &a.SlotID, &a.PatientID, &a.PatientName, &a.PatientPhone,
		&a.CancelledBy, &a.CancelledAt, &a.CancelReason, &a.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return model.Appointment{}, apperr.NotFound("appointment %s not found", id)
		}
		return model.Appointment{}, internal(err)
	}
	return a, nil
}

func (r *Repository) queueNotification(ctx context.Context, tx pgx.Tx, appointmentID string, req notify.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return internal(err)
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appointmentID,
		EventType:     notify.EventTopic,
		Payload:       payload,
	}); err != nil {
		return internal(err)
	}
	return nil
}

// doctorOwner resolves the user account behind a doctor profile, the
// recipient of booking and patient-cancellation notifications.
func doctorOwner(ctx context.Context, tx pgx.Tx, doctorID string) (model.User, error) {
	var u model.User
	err := tx.QueryRow(ctx, `
		SELECT u.id::text, u.email, u.name, u.phone
		FROM doctors d
		JOIN users u ON u.id = d.user_id AND u.deleted_at IS NULL
		WHERE d.id = $1 AND d.deleted_at IS NULL
	`, doctorID).Scan(&u.ID, &u.Email, &u.Name, &u.Phone)
	if err != nil {
		if isNoRows(err) {
			return model.User{}, apperr.NotFound("doctor %s not found", doctorID)
		}
		return model.User{}, internal(err)
	}
	return u, nil
}

func userByIDTx(ctx context.Context, tx pgx.Tx, id string) (model.User, error) {
	var u model.User
	err := tx.QueryRow(ctx, `
		SELECT id::text, email, name, phone
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.Phone)
	if err != nil {
		if isNoRows(err) {
			return model.User{}, apperr.NotFound("user %s not found", id)
		}
		return model.User{}, internal(err)
	}
	return u, nil
}
