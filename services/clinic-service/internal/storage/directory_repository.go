package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/medbook-app/medbook/libs/db"
	"github.com/medbook-app/medbook/services/clinic-service/internal/model"
)

// DirectoryRepository covers the reference data appointments point at:
// practitioners, patients and the service catalog.
type DirectoryRepository struct {
	pool *db.Pool
}

func NewDirectoryRepository(pool *db.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) CreatePractitioner(ctx context.Context, p *model.Practitioner) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO practitioners (name, specialty, color, active)
		VALUES ($1, $2, $3, true)
		RETURNING id
	`, p.Name, p.Specialty, p.Color).Scan(&id)
	return id, err
}

func (r *DirectoryRepository) GetPractitioner(ctx context.Context, id string) (model.Practitioner, error) {
	var p model.Practitioner
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(specialty, ''), COALESCE(color, ''), active, created_at
		FROM practitioners
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Specialty, &p.Color, &p.Active, &p.CreatedAt)
	return p, err
}

func (r *DirectoryRepository) ListPractitioners(ctx context.Context) ([]model.Practitioner, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(specialty, ''), COALESCE(color, ''), active, created_at
		FROM practitioners
		WHERE active
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Practitioner
	for rows.Next() {
		var p model.Practitioner
		if err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.Color, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *DirectoryRepository) DeactivatePractitioner(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE practitioners SET active = false WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *DirectoryRepository) CreatePatient(ctx context.Context, p *model.Patient) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO patients (name, email, phone)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		RETURNING id
	`, p.Name, p.Email, p.Phone).Scan(&id)
	return id, err
}

func (r *DirectoryRepository) GetPatient(ctx context.Context, id string) (model.Patient, error) {
	var p model.Patient
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), created_at
		FROM patients
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.CreatedAt)
	return p, err
}

func (r *DirectoryRepository) ListPatients(ctx context.Context, limit int) ([]model.Patient, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), created_at
		FROM patients
		ORDER BY name ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Patient
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *DirectoryRepository) CreateService(ctx context.Context, s *model.Service) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO services (name, duration_minutes, price_cents, active)
		VALUES ($1, $2, $3, true)
		RETURNING id
	`, s.Name, s.DurationMinutes, s.PriceCents).Scan(&id)
	return id, err
}

func (r *DirectoryRepository) GetService(ctx context.Context, id string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, duration_minutes, price_cents, active, created_at
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.Active, &s.CreatedAt)
	return s, err
}

func (r *DirectoryRepository) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, duration_minutes, price_cents, active, created_at
		FROM services
		WHERE active
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
