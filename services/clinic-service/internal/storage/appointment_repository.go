package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/medbook-app/medbook/libs/db"
	"github.com/medbook-app/medbook/services/clinic-service/internal/model"
)

type AppointmentRepository struct {
	pool *db.Pool
}

type IdempotencyRecord struct {
	IdempotencyKey  string
	AppointmentID   string
	StatusCode      int
	ResponsePayload []byte
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const appointmentColumns = `id, practitioner_id, patient_id, service_id, start_time, end_time, status, COALESCE(notes, ''), created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.PractitionerID,
		&appt.PatientID,
		&appt.ServiceID,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Status,
		&appt.Notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	return appt, err
}

func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(practitioner_id, patient_id, service_id, start_time, end_time, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, appt.PractitionerID, appt.PatientID, appt.ServiceID,
		appt.StartTime, appt.EndTime, appt.Status, appt.Notes).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, appointmentID string) (model.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, appointmentID))
}

func (r *AppointmentRepository) Get(ctx context.Context, appointmentID string) (model.Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, appointmentID))
}

// ListForPractitionerDay returns every appointment, cancelled included,
// for one practitioner whose interval overlaps [dayStart, dayEnd). Runs
// on the transaction so the conflict check and the insert see the same
// snapshot.
func (r *AppointmentRepository) ListForPractitionerDay(ctx context.Context, tx pgx.Tx, practitionerID string, dayStart, dayEnd time.Time) ([]model.Appointment, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, practitionerID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

func (r *AppointmentRepository) UpdateTimes(ctx context.Context, tx pgx.Tx, appointmentID string, start, end time.Time) (model.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET start_time = $2,
			end_time = $3,
			updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, appointmentID, start, end))
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, appointmentID, status string) (model.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, appointmentID, status))
}

type ListFilter struct {
	PractitionerID string
	PatientID      string
	Status         string
	From           time.Time
	To             time.Time
	Limit          int
}

// List returns appointments joined with display names, newest first.
// Zero-valued filter fields are ignored.
func (r *AppointmentRepository) List(ctx context.Context, f ListFilter) ([]model.CalendarEntry, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.practitioner_id, a.patient_id, a.service_id,
			a.start_time, a.end_time, a.status, COALESCE(a.notes, ''),
			a.created_at, a.updated_at,
			pr.name, pa.name, sv.name
		FROM appointments a
		JOIN practitioners pr ON pr.id = a.practitioner_id
		JOIN patients pa ON pa.id = a.patient_id
		JOIN services sv ON sv.id = a.service_id
		WHERE ($1 = '' OR a.practitioner_id = $1::uuid)
			AND ($2 = '' OR a.patient_id = $2::uuid)
			AND ($3 = '' OR a.status = $3)
			AND ($4::timestamptz IS NULL OR a.start_time >= $4)
			AND ($5::timestamptz IS NULL OR a.start_time < $5)
		ORDER BY a.start_time DESC
		LIMIT $6
	`, f.PractitionerID, f.PatientID, f.Status, nullableTime(f.From), nullableTime(f.To), f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListForRange returns all non-cancelled appointments with display names
// whose start falls in [from, to). The calendar grid is built from this.
func (r *AppointmentRepository) ListForRange(ctx context.Context, from, to time.Time) ([]model.CalendarEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.practitioner_id, a.patient_id, a.service_id,
			a.start_time, a.end_time, a.status, COALESCE(a.notes, ''),
			a.created_at, a.updated_at,
			pr.name, pa.name, sv.name
		FROM appointments a
		JOIN practitioners pr ON pr.id = a.practitioner_id
		JOIN patients pa ON pa.id = a.patient_id
		JOIN services sv ON sv.id = a.service_id
		WHERE a.status <> 'cancelled'
			AND a.start_time >= $1
			AND a.start_time < $2
		ORDER BY a.start_time ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]model.CalendarEntry, error) {
	var entries []model.CalendarEntry
	for rows.Next() {
		var e model.CalendarEntry
		if err := rows.Scan(
			&e.ID,
			&e.PractitionerID,
			&e.PatientID,
			&e.ServiceID,
			&e.StartTime,
			&e.EndTime,
			&e.Status,
			&e.Notes,
			&e.CreatedAt,
			&e.UpdatedAt,
			&e.PractitionerName,
			&e.PatientName,
			&e.ServiceName,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (r *AppointmentRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointment_idempotency_keys (idempotency_key)
		VALUES ($1)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *AppointmentRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, key, appointmentID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE appointment_idempotency_keys
		SET appointment_id = $2,
			status_code = $3,
			response_payload = $4,
			updated_at = now()
		WHERE idempotency_key = $1
	`, key, appointmentID, statusCode, response)
	return err
}

func (r *AppointmentRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT idempotency_key,
			COALESCE(appointment_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM appointment_idempotency_keys
		WHERE idempotency_key = $1
		FOR UPDATE
	`, key).Scan(
		&rec.IdempotencyKey,
		&rec.AppointmentID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}

// IsConflict reports whether err is the exclusion constraint violation
// raised when two overlapping appointments race past the in-transaction
// check. The constraint is the storage-level backstop for double booking.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
