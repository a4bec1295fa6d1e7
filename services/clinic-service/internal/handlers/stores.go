package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medbook-app/medbook/services/clinic-service/internal/model"
	"github.com/medbook-app/medbook/services/clinic-service/internal/outbox"
	"github.com/medbook-app/medbook/services/clinic-service/internal/storage"
)

// appointmentStore is the slice of the storage layer the appointment
// handlers touch. *storage.AppointmentRepository satisfies it.
type appointmentStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, appointmentID string) (model.Appointment, error)
	ListForPractitionerDay(ctx context.Context, tx pgx.Tx, practitionerID string, dayStart, dayEnd time.Time) ([]model.Appointment, error)
	UpdateTimes(ctx context.Context, tx pgx.Tx, appointmentID string, start, end time.Time) (model.Appointment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, appointmentID, status string) (model.Appointment, error)
	List(ctx context.Context, f storage.ListFilter) ([]model.CalendarEntry, error)
	ListForRange(ctx context.Context, from, to time.Time) ([]model.CalendarEntry, error)
	LockIdempotencyKey(ctx context.Context, tx pgx.Tx, key string) (storage.IdempotencyRecord, bool, error)
	FinalizeIdempotency(ctx context.Context, tx pgx.Tx, key, appointmentID string, statusCode int, response []byte) error
}

// directoryStore is the read side of the directory the appointment
// handlers use to resolve references.
type directoryStore interface {
	GetPractitioner(ctx context.Context, id string) (model.Practitioner, error)
	GetPatient(ctx context.Context, id string) (model.Patient, error)
	GetService(ctx context.Context, id string) (model.Service, error)
}

type eventStore interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

// validUUID guards uuid-typed columns at the request boundary. A
// malformed identifier would otherwise surface as a postgres cast
// error instead of a not-found row.
func validUUID(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}
