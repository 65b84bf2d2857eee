package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

func (r *Repository) CreateDoctor(ctx context.Context, d model.Doctor) (model.Doctor, error) {
	owner, err := r.GetUser(ctx, d.UserID)
	if err != nil {
		return model.Doctor{}, err
	}
	if owner.Role != model.RoleDoctor {
		return model.Doctor{}, apperr.Validation("user %s does not have the doctor role", d.UserID)
	}

	d.ID = uuid.NewString()
	d.Name = owner.Name
	err = r.pool.QueryRow(ctx, `
		INSERT INTO doctors (id, user_id, specialty, bio)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, d.ID, d.UserID, d.Specialty, d.Bio).Scan(&d.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Doctor{}, apperr.Conflict("user %s already has a doctor profile", d.UserID)
		}
		return model.Doctor{}, internal(err)
	}
	return d, nil
}

const doctorColumns = `
	d.id::text, d.user_id::text, u.name, d.specialty, d.bio, d.created_at`

func (r *Repository) GetDoctor(ctx context.Context, id string) (model.Doctor, error) {
	var d model.Doctor
	err := r.pool.QueryRow(ctx, `
		SELECT`+doctorColumns+`
		FROM doctors d
		JOIN users u ON u.id = d.user_id AND u.deleted_at IS NULL
		WHERE d.id = $1 AND d.deleted_at IS NULL
	`, id).Scan(&d.ID, &d.UserID, &d.Name, &d.Specialty, &d.Bio, &d.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return model.Doctor{}, apperr.NotFound("doctor %s not found", id)
		}
		return model.Doctor{}, internal(err)
	}
	return d, nil
}

func (r *Repository) ListDoctors(ctx context.Context) ([]model.Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+doctorColumns+`
		FROM doctors d
		JOIN users u ON u.id = d.user_id AND u.deleted_at IS NULL
		WHERE d.deleted_at IS NULL
		ORDER BY u.name ASC
	`)
	if err != nil {
		return nil, internal(err)
	}
	defer rows.Close()

	var out []model.Doctor
	for rows.Next() {
		var d model.Doctor
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialty, &d.Bio, &d.CreatedAt); err != nil {
			return nil, internal(err)
		}
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, internal(rows.Err())
	}
	return out, nil
}
