package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

func (r *Repository) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	u.ID = uuid.NewString()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, role, name, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, u.ID, u.Email, u.PasswordHash, u.Role, u.Name, u.Phone).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, apperr.Conflict("email %s is already registered", u.Email)
		}
		return model.User{}, internal(err)
	}
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, email, password_hash, role, name, phone, created_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.Phone, &u.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return model.User{}, apperr.NotFound("user %s not found", id)
		}
		return model.User{}, internal(err)
	}
	return u, nil
}

func (r *Repository) SoftDeleteUser(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user %s not found", id)
	}
	return nil
}
