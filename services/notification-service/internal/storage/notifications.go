package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/libs/db"
)

// Delivery statuses.
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)

type Notification struct {
	ID              string
	AppointmentID   string
	RecipientUserID string
	Channel         string
	Recipient       string
	Message         string
	Status          string
	FailureReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records the notification as PENDING before any delivery attempt, so
// a crash mid-send leaves a visible trail.
func (r *Repository) Insert(ctx context.Context, n Notification) (Notification, error) {
	n.ID = uuid.NewString()
	n.Status = StatusPending
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, appointment_id, recipient_user_id, channel, recipient, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, n.ID, n.AppointmentID, n.RecipientUserID, n.Channel, n.Recipient, n.Message, n.Status).
		Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id, status, failureReason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $2, failure_reason = NULLIF($3, ''), updated_at = now()
		WHERE id = $1
	`, id, status, failureReason)
	return err
}

func (r *Repository) ListByRecipient(ctx context.Context, recipientUserID string) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, appointment_id::text, recipient_user_id::text, channel, recipient,
			message, status, COALESCE(failure_reason, ''), created_at, updated_at
		FROM notifications
		WHERE recipient_user_id = $1
		ORDER BY created_at DESC, id ASC
	`, recipientUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.AppointmentID, &n.RecipientUserID, &n.Channel, &n.Recipient,
			&n.Message, &n.Status, &n.FailureReason, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
