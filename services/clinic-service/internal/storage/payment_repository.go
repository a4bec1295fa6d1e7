package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/medbook-app/medbook/libs/db"
	"github.com/medbook-app/medbook/services/clinic-service/internal/model"
)

type PaymentRepository struct {
	pool *db.Pool
}

func NewPaymentRepository(pool *db.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *PaymentRepository) Create(ctx context.Context, tx pgx.Tx, p *model.Payment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO payments (appointment_id, amount_cents, currency, status, provider_ref)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id
	`, p.AppointmentID, p.AmountCents, p.Currency, p.Status, p.ProviderRef).Scan(&id)
	return id, err
}

func (r *PaymentRepository) MarkPaid(ctx context.Context, tx pgx.Tx, providerRef string) (model.Payment, error) {
	var p model.Payment
	err := tx.QueryRow(ctx, `
		UPDATE payments
		SET status = 'paid',
			updated_at = now()
		WHERE provider_ref = $1
		RETURNING id, appointment_id, amount_cents, currency, status, COALESCE(provider_ref, ''), created_at, updated_at
	`, providerRef).Scan(&p.ID, &p.AppointmentID, &p.AmountCents, &p.Currency, &p.Status, &p.ProviderRef, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PaymentRepository) ListForAppointment(ctx context.Context, appointmentID string) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, amount_cents, currency, status, COALESCE(provider_ref, ''), created_at, updated_at
		FROM payments
		WHERE appointment_id = $1
		ORDER BY created_at DESC
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.AppointmentID, &p.AmountCents, &p.Currency, &p.Status, &p.ProviderRef, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type ProviderEvent struct {
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         []byte
}

var ErrDuplicateProviderEvent = errors.New("duplicate provider event")

// InsertProviderEvent records a webhook delivery so replays can be
// ignored. Returns ErrDuplicateProviderEvent when the provider has
// already delivered this event id.
func (r *PaymentRepository) InsertProviderEvent(ctx context.Context, tx pgx.Tx, evt ProviderEvent) error {
	var payload any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO provider_events (provider, provider_event_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, provider_event_id) DO NOTHING
	`, evt.Provider, evt.ProviderEventID, evt.EventType, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateProviderEvent
	}
	return nil
}
