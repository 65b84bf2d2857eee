package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

func (r *Repository) CreatePayment(ctx context.Context, appointmentID, amount string) (model.Payment, error) {
	appt, err := r.GetAppointment(ctx, appointmentID)
	if err != nil {
		return model.Payment{}, err
	}
	if appt.Cancelled() {
		return model.Payment{}, apperr.Conflict("appointment %s is cancelled", appointmentID)
	}

	p := model.Payment{
		ID:            uuid.NewString(),
		AppointmentID: appointmentID,
		Amount:        amount,
		Status:        model.PaymentPending,
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO payments (id, appointment_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, p.ID, p.AppointmentID, p.Amount, p.Status).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Payment{}, internal(err)
	}
	return p, nil
}

// TransitionPayment applies a status transition under a row lock and rejects
// anything outside the legal table (PENDING->PAID, PENDING->FAILED,
// PAID->REFUNDED).
func (r *Repository) TransitionPayment(ctx context.Context, id, next string) (model.Payment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Payment{}, internal(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p model.Payment
	err = tx.QueryRow(ctx, `
		SELECT id::text, appointment_id::text, amount::text, status, created_at, updated_at
		FROM payments
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&p.ID, &p.AppointmentID, &p.Amount, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return model.Payment{}, apperr.NotFound("payment %s not found", id)
		}
		return model.Payment{}, internal(err)
	}

	if !paymentTransitionAllowed(p.Status, next) {
		return model.Payment{}, apperr.Conflict("payment %s cannot move from %s to %s", p.ID, p.Status, next)
	}

	err = tx.QueryRow(ctx, `
		UPDATE payments
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, next).Scan(&p.UpdatedAt)
	if err != nil {
		return model.Payment{}, internal(err)
	}
	p.Status = next

	if err := tx.Commit(ctx); err != nil {
		return model.Payment{}, internal(err)
	}
	return p, nil
}

func paymentTransitionAllowed(from, to string) bool {
	switch from {
	case model.PaymentPending:
		return to == model.PaymentPaid || to == model.PaymentFailed
	case model.PaymentPaid:
		return to == model.PaymentRefunded
	default:
		return false
	}
}

func (r *Repository) ListPayments(ctx context.Context, appointmentID string) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, appointment_id::text, amount::text, status, created_at, updated_at
		FROM payments
		WHERE ($1 = '' OR appointment_id::text = $1)
		ORDER BY created_at ASC, id ASC
	`, appointmentID)
	if err != nil {
		return nil, internal(err)
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.AppointmentID, &p.Amount, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, internal(err)
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, internal(rows.Err())
	}
	return out, nil
}
