package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

// CreateFeedback records a patient's rating for a doctor. The patient must
// have a non-cancelled appointment with that doctor.
func (r *Repository) CreateFeedback(ctx context.Context, f model.Feedback) (model.Feedback, error) {
	var visited bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments a
			JOIN slots s ON s.id = a.slot_id
			WHERE a.patient_id = $1
				AND s.doctor_id = $2
				AND a.cancelled_at IS NULL
		)
	`, f.PatientID, f.DoctorID).Scan(&visited)
	if err != nil {
		return model.Feedback{}, internal(err)
	}
	if !visited {
		return model.Feedback{}, apperr.Conflict("patient %s has no appointment with doctor %s", f.PatientID, f.DoctorID)
	}

	f.ID = uuid.NewString()
	err = r.pool.QueryRow(ctx, `
		INSERT INTO feedback (id, patient_id, doctor_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, f.ID, f.PatientID, f.DoctorID, f.Rating, f.Comment).Scan(&f.CreatedAt)
	if err != nil {
		return model.Feedback{}, internal(err)
	}
	return f, nil
}

type DoctorFeedback struct {
	Items         []model.Feedback
	AverageRating float64
}

func (r *Repository) ListFeedback(ctx context.Context, doctorID string) (DoctorFeedback, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, patient_id::text, doctor_id::text, rating, comment, created_at
		FROM feedback
		WHERE doctor_id = $1
		ORDER BY created_at DESC, id ASC
	`, doctorID)
	if err != nil {
		return DoctorFeedback{}, internal(err)
	}
	defer rows.Close()

	var fb DoctorFeedback
	var sum int
	for rows.Next() {
		var f model.Feedback
		if err := rows.Scan(&f.ID, &f.PatientID, &f.DoctorID, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return DoctorFeedback{}, internal(err)
		}
		sum += f.Rating
		fb.Items = append(fb.Items, f)
	}
	if rows.Err() != nil {
		return DoctorFeedback{}, internal(rows.Err())
	}
	if len(fb.Items) > 0 {
		fb.AverageRating = float64(sum) / float64(len(fb.Items))
	}
	return fb, nil
}
