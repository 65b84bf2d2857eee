package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/clock"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/schedule"
)

const slotColumns = `
	s.id::text, s.doctor_id::text, s.service_id::text, s.start_at, s.duration_mins, s.status, s.created_at`

func scanSlot(row pgx.Row) (model.Slot, error) {
	var s model.Slot
	err := row.Scan(&s.ID, &s.DoctorID, &s.ServiceID, &s.StartAt, &s.DurationMins, &s.Status, &s.CreatedAt)
	return s, err
}

// firstConflicting finds the earliest-starting slot of the doctor whose
// half-open interval overlaps [start, start+mins). excludeID skips the slot
// being rescheduled.
func firstConflicting(ctx context.Context, tx pgx.Tx, doctorID string, start time.Time, mins int, excludeID string) (*model.Slot, error) {
	end := start.Add(time.Duration(mins) * time.Minute)
	row := tx.QueryRow(ctx, `
		SELECT`+slotColumns+`
		FROM slots s
		WHERE s.doctor_id = $1
			AND s.id::text <> $2
			AND s.start_at < $4
			AND s.start_at + make_interval(mins => s.duration_mins) > $3
		ORDER BY s.start_at ASC, s.id ASC
		LIMIT 1
	`, doctorID, excludeID, start, end)
	s, err := scanSlot(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// CreateSlots persists one published batch atomically: each slot is re-checked
// for conflicts inside the transaction, and any hit rolls the whole batch
// back.
func (r *Repository) CreateSlots(ctx context.Context, slots []model.Slot) ([]model.Slot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, internal(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]model.Slot, 0, len(slots))
	for _, s := range slots {
		hit, err := firstConflicting(ctx, tx, s.DoctorID, s.StartAt, s.DurationMins, "")
		if err != nil {
			return nil, internal(err)
		}
		if hit != nil {
			return nil, schedule.ConflictError(*hit)
		}

		s.ID = uuid.NewString()
		err = tx.QueryRow(ctx, `
			INSERT INTO slots (id, doctor_id, service_id, start_at, duration_mins, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`, s.ID, s.DoctorID, s.ServiceID, s.StartAt, s.DurationMins, s.Status).Scan(&s.CreatedAt)
		if err != nil {
			return nil, internal(err)
		}
		out = append(out, s)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, internal(err)
	}
	return out, nil
}

func (r *Repository) GetSlot(ctx context.Context, id string) (model.Slot, error) {
	s, err := scanSlot(r.pool.QueryRow(ctx, `
		SELECT`+slotColumns+`
		FROM slots s
		WHERE s.id = $1
	`, id))
	if err != nil {
		if isNoRows(err) {
			return model.Slot{}, apperr.NotFound("slot %s not found", id)
		}
		return model.Slot{}, internal(err)
	}
	return s, nil
}

// SlotUpdate carries the optional fields of a single-slot reschedule. Nil
// means "keep the current value".
type SlotUpdate struct {
	Date     *time.Time
	Clock    *time.Time
	Duration *int
	Status   *string
}

func (r *Repository) UpdateSlot(ctx context.Context, slotID string, upd SlotUpdate) (model.Slot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Slot{}, internal(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	s, err := scanSlot(tx.QueryRow(ctx, `
		SELECT`+slotColumns+`
		FROM slots s
		WHERE s.id = $1
		FOR UPDATE
	`, slotID))
	if err != nil {
		if isNoRows(err) {
			return model.Slot{}, apperr.NotFound("slot %s not found", slotID)
		}
		return model.Slot{}, internal(err)
	}

	var linked bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments WHERE slot_id = $1 AND cancelled_at IS NULL)
	`, slotID).Scan(&linked); err != nil {
		return model.Slot{}, internal(err)
	}
	if linked {
		return model.Slot{}, apperr.Conflict("cannot modify a booked slot")
	}

	// Effective schedule = provided values over current ones.
	date := s.StartAt
	if upd.Date != nil {
		date = *upd.Date
	}
	tod := s.StartAt
	if upd.Clock != nil {
		tod = *upd.Clock
	}
	start := clock.Combine(date, tod)
	mins := s.DurationMins
	if upd.Duration != nil {
		mins = *upd.Duration
	}

	if !start.Equal(s.StartAt) || mins != s.DurationMins {
		hit, err := firstConflicting(ctx, tx, s.DoctorID, start, mins, s.ID)
		if err != nil {
			return model.Slot{}, internal(err)
		}
		if hit != nil {
			return model.Slot{}, schedule.ConflictError(*hit)
		}
	}

	s.StartAt = start
	s.DurationMins = mins
	if upd.Status != nil {
		s.Status = *upd.Status
	}

	if _, err := tx.Exec(ctx, `
		UPDATE slots
		SET start_at = $2, duration_mins = $3, status = $4
		WHERE id = $1
	`, s.ID, s.StartAt, s.DurationMins, s.Status); err != nil {
		return model.Slot{}, internal(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Slot{}, internal(err)
	}
	return s, nil
}

// ListScheduleRows returns slots joined with display names, ordered by start
// time ascending so grouping stays deterministic. Empty filter values match
// everything.
func (r *Repository) ListScheduleRows(ctx context.Context, doctorID, serviceID string) ([]schedule.Row, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+slotColumns+`, u.name, cs.name
		FROM slots s
		JOIN doctors d ON d.id = s.doctor_id AND d.deleted_at IS NULL
		JOIN users u ON u.id = d.user_id AND u.deleted_at IS NULL
		JOIN catalog_services cs ON cs.id = s.service_id AND cs.deleted_at IS NULL
		WHERE ($1 = '' OR s.doctor_id::text = $1)
			AND ($2 = '' OR s.service_id::text = $2)
		ORDER BY s.start_at ASC, s.id ASC
	`, doctorID, serviceID)
	if err != nil {
		return nil, internal(err)
	}
	defer rows.Close()

	var out []schedule.Row
	for rows.Next() {
		var row schedule.Row
		if err := rows.Scan(
			&row.Slot.ID, &row.Slot.DoctorID, &row.Slot.ServiceID, &row.Slot.StartAt,
			&row.Slot.DurationMins, &row.Slot.Status, &row.Slot.CreatedAt,
			&row.DoctorName, &row.ServiceName,
		); err != nil {
			return nil, internal(err)
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, internal(rows.Err())
	}
	return out, nil
}
