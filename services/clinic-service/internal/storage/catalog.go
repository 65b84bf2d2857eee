package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

func (r *Repository) CreateService(ctx context.Context, s model.CatalogService) (model.CatalogService, error) {
	s.ID = uuid.NewString()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO catalog_services (id, name, description, price, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, s.ID, s.Name, s.Description, s.Price, s.Status).Scan(&s.CreatedAt)
	if err != nil {
		return model.CatalogService{}, internal(err)
	}
	return s, nil
}

func (r *Repository) GetService(ctx context.Context, id string) (model.CatalogService, error) {
	var s model.CatalogService
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, description, price::text, status, created_at
		FROM catalog_services
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.Status, &s.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return model.CatalogService{}, apperr.NotFound("service %s not found", id)
		}
		return model.CatalogService{}, internal(err)
	}
	return s, nil
}

func (r *Repository) ListServices(ctx context.Context) ([]model.CatalogService, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, description, price::text, status, created_at
		FROM catalog_services
		WHERE deleted_at IS NULL
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, internal(err)
	}
	defer rows.Close()

	var out []model.CatalogService
	for rows.Next() {
		var s model.CatalogService
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.Status, &s.CreatedAt); err != nil {
			return nil, internal(err)
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, internal(rows.Err())
	}
	return out, nil
}

func (r *Repository) UpdateServiceStatus(ctx context.Context, id, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE catalog_services
		SET status = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, status)
	if err != nil {
		return internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("service %s not found", id)
	}
	return nil
}

func (r *Repository) CreatePromotion(ctx context.Context, p model.Promotion) (model.Promotion, error) {
	if _, err := r.GetService(ctx, p.ServiceID); err != nil {
		return model.Promotion{}, err
	}
	p.ID = uuid.NewString()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO promotions (id, service_id, title, percent_off, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, p.ID, p.ServiceID, p.Title, p.PercentOff, p.StartsAt, p.EndsAt).Scan(&p.CreatedAt)
	if err != nil {
		return model.Promotion{}, internal(err)
	}
	return p, nil
}

func (r *Repository) ListPromotions(ctx context.Context, serviceID string) ([]model.Promotion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, service_id::text, title, percent_off, starts_at, ends_at, created_at
		FROM promotions
		WHERE deleted_at IS NULL
			AND ($1 = '' OR service_id::text = $1)
		ORDER BY starts_at ASC, id ASC
	`, serviceID)
	if err != nil {
		return nil, internal(err)
	}
	defer rows.Close()

	var out []model.Promotion
	for rows.Next() {
		var p model.Promotion
		if err := rows.Scan(&p.ID, &p.ServiceID, &p.Title, &p.PercentOff, &p.StartsAt, &p.EndsAt, &p.CreatedAt); err != nil {
			return nil, internal(err)
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, internal(rows.Err())
	}
	return out, nil
}

// ActivePromotions returns the live promotions for a service at the given
// instant, half-open on [starts_at, ends_at).
func (r *Repository) ActivePromotions(ctx context.Context, serviceID string, now time.Time) ([]model.Promotion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, service_id::text, title, percent_off, starts_at, ends_at, created_at
		FROM promotions
		WHERE deleted_at IS NULL
			AND service_id = $1
			AND starts_at <= $2
			AND ends_at > $2
		ORDER BY percent_off DESC, id ASC
	`, serviceID, now)
	if err != nil {
		return nil, internal(err)
	}
	defer rows.Close()

	var out []model.Promotion
	for rows.Next() {
		var p model.Promotion
		if err := rows.Scan(&p.ID, &p.ServiceID, &p.Title, &p.PercentOff, &p.StartsAt, &p.EndsAt, &p.CreatedAt); err != nil {
			return nil, internal(err)
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, internal(rows.Err())
	}
	return out, nil
}

func (r *Repository) SoftDeletePromotion(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE promotions
		SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("promotion %s not found", id)
	}
	return nil
}
