package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/medbook-app/medbook/services/clinic-service/internal/model"
	"github.com/medbook-app/medbook/services/clinic-service/internal/outbox"
	"github.com/medbook-app/medbook/services/clinic-service/internal/schedule"
	"github.com/medbook-app/medbook/services/clinic-service/internal/storage"
)

type AppointmentHandler struct {
	repo       appointmentStore
	dir        directoryStore
	outboxRepo eventStore
	logger     *slog.Logger
	loc        *time.Location
}

func NewAppointmentHandler(repo appointmentStore, dir directoryStore, outboxRepo eventStore, logger *slog.Logger, loc *time.Location) *AppointmentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentHandler{
		repo:       repo,
		dir:        dir,
		outboxRepo: outboxRepo,
		logger:     logger,
		loc:        loc,
	}
}

type createAppointmentRequest struct {
	PractitionerID string `json:"practitioner_id"`
	PatientID      string `json:"patient_id"`
	ServiceID      string `json:"service_id"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Notes          string `json:"notes"`
}

type createAppointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.PractitionerID = strings.TrimSpace(req.PractitionerID)
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)

	if req.PractitionerID == "" || req.PatientID == "" || req.ServiceID == "" {
		http.Error(w, "practitioner_id, patient_id and service_id are required", http.StatusBadRequest)
		return
	}
	if !validUUID(req.PractitionerID) {
		http.Error(w, "invalid practitioner_id", http.StatusBadRequest)
		return
	}
	if !validUUID(req.PatientID) {
		http.Error(w, "invalid patient_id", http.StatusBadRequest)
		return
	}
	if !validUUID(req.ServiceID) {
		http.Error(w, "invalid service_id", http.StatusBadRequest)
		return
	}

	startTime, endTime, ok := h.parseInterval(w, req.StartTime, req.EndTime)
	if !ok {
		return
	}

	appt := &model.Appointment{
		PractitionerID: req.PractitionerID,
		PatientID:      req.PatientID,
		ServiceID:      req.ServiceID,
		StartTime:      startTime,
		EndTime:        endTime,
		Status:         model.StatusPending,
		Notes:          strings.TrimSpace(req.Notes),
	}

	ctx := r.Context()
	if _, err := h.dir.GetPractitioner(ctx, appt.PractitionerID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "practitioner not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load practitioner", http.StatusInternalServerError)
		return
	}
	if _, err := h.dir.GetPatient(ctx, appt.PatientID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load patient", http.StatusInternalServerError)
		return
	}
	if _, err := h.dir.GetService(ctx, appt.ServiceID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.repo.LockIdempotencyKey(ctx, tx, idempotencyKey)
		if err != nil {
			http.Error(w, "failed to lock idempotency key", http.StatusInternalServerError)
			return
		}
		if exists && rec.StatusCode > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			if len(rec.ResponsePayload) > 0 {
				_, _ = w.Write(rec.ResponsePayload)
				return
			}
			_ = json.NewEncoder(w).Encode(createAppointmentResponse{AppointmentID: rec.AppointmentID})
			return
		}
	}

	if conflicted, err := h.hasConflict(ctx, tx, appt.PractitionerID, startTime, endTime, ""); err != nil {
		http.Error(w, "failed to check conflicts", http.StatusInternalServerError)
		return
	} else if conflicted {
		http.Error(w, schedule.ErrConflict.Error(), http.StatusConflict)
		return
	}

	id, err := h.repo.Create(ctx, tx, appt)
	if err != nil {
		// The exclusion constraint catches inserts that raced past the
		// in-transaction check. Same outcome as the checker.
		if storage.IsConflict(err) {
			http.Error(w, schedule.ErrConflict.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}

	if err := h.insertAppointmentEvent(ctx, tx, outbox.TopicAppointmentBooked, id, appt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	respBody, err := json.Marshal(createAppointmentResponse{AppointmentID: id})
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	if idempotencyKey != "" {
		if err := h.repo.FinalizeIdempotency(ctx, tx, idempotencyKey, id, http.StatusCreated, respBody); err != nil {
			http.Error(w, "failed to finalize idempotency key", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	if !validUUID(req.AppointmentID) {
		http.Error(w, "invalid appointment_id", http.StatusBadRequest)
		return
	}

	startTime, endTime, ok := h.parseInterval(w, req.StartTime, req.EndTime)
	if !ok {
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if appt.Status == model.StatusCancelled {
		http.Error(w, "cancelled appointment cannot be rescheduled", http.StatusConflict)
		return
	}

	// The appointment's own interval is excluded so it cannot collide
	// with itself when the new time overlaps the old one.
	if conflicted, err := h.hasConflict(ctx, tx, appt.PractitionerID, startTime, endTime, appt.ID); err != nil {
		http.Error(w, "failed to check conflicts", http.StatusInternalServerError)
		return
	} else if conflicted {
		http.Error(w, schedule.ErrConflict.Error(), http.StatusConflict)
		return
	}

	updated, err := h.repo.UpdateTimes(ctx, tx, appt.ID, startTime, endTime)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, schedule.ErrConflict.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "failed to reschedule appointment", http.StatusInternalServerError)
		return
	}

	if err := h.insertAppointmentEvent(ctx, tx, outbox.TopicAppointmentRescheduled, updated.ID, &updated); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	if !validUUID(req.AppointmentID) {
		http.Error(w, "invalid appointment_id", http.StatusBadRequest)
		return
	}
	if !model.ValidStatuses[req.Status] {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	h.applyStatus(w, r, req.AppointmentID, req.Status)
}

// Cancel is a shorthand for a status change to cancelled. Cancelling an
// already cancelled appointment is a no-op success.
func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	if !validUUID(req.AppointmentID) {
		http.Error(w, "invalid appointment_id", http.StatusBadRequest)
		return
	}

	h.applyStatus(w, r, req.AppointmentID, model.StatusCancelled)
}

func (h *AppointmentHandler) applyStatus(w http.ResponseWriter, r *http.Request, appointmentID, status string) {
	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}

	if appt.Status == status {
		writeJSON(w, http.StatusOK, appt)
		return
	}

	// Reviving a cancelled appointment re-occupies the slot, so the
	// conflict check runs again as if it were a new booking.
	if appt.Status == model.StatusCancelled && status != model.StatusCancelled {
		if conflicted, err := h.hasConflict(ctx, tx, appt.PractitionerID, appt.StartTime, appt.EndTime, appt.ID); err != nil {
			http.Error(w, "failed to check conflicts", http.StatusInternalServerError)
			return
		} else if conflicted {
			http.Error(w, schedule.ErrConflict.Error(), http.StatusConflict)
			return
		}
	}

	updated, err := h.repo.UpdateStatus(ctx, tx, appt.ID, status)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, schedule.ErrConflict.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "failed to update status", http.StatusInternalServerError)
		return
	}

	topic := outbox.TopicAppointmentStatus
	if status == model.StatusCancelled {
		topic = outbox.TopicAppointmentCancelled
	}
	if err := h.insertAppointmentEvent(ctx, tx, topic, updated.ID, &updated); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	filter := storage.ListFilter{
		PractitionerID: strings.TrimSpace(q.Get("practitioner_id")),
		PatientID:      strings.TrimSpace(q.Get("patient_id")),
		Status:         strings.ToLower(strings.TrimSpace(q.Get("status"))),
	}
	if filter.Status != "" && !model.ValidStatuses[filter.Status] {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	if filter.PractitionerID != "" && !validUUID(filter.PractitionerID) {
		http.Error(w, "invalid practitioner_id", http.StatusBadRequest)
		return
	}
	if filter.PatientID != "" && !validUUID(filter.PatientID) {
		http.Error(w, "invalid patient_id", http.StatusBadRequest)
		return
	}
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		filter.From = t
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return
		}
		filter.To = t
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			filter.Limit = n
		}
	}

	entries, err := h.repo.List(r.Context(), filter)
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.CalendarEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// hasConflict loads the practitioner's appointments for the day of the
// candidate interval and scans them in memory. It runs on the same
// transaction as the mutation that follows.
func (h *AppointmentHandler) hasConflict(ctx context.Context, tx pgx.Tx, practitionerID string, start, end time.Time, exclude string) (bool, error) {
	local := start.In(h.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	// Intervals that run past midnight widen the window to their end day.
	for !end.In(h.loc).Before(dayEnd) {
		dayEnd = dayEnd.AddDate(0, 0, 1)
	}

	existing, err := h.repo.ListForPractitionerDay(ctx, tx, practitionerID, dayStart, dayEnd)
	if err != nil {
		return false, err
	}
	return schedule.HasConflict(existing, start, end, exclude), nil
}

func (h *AppointmentHandler) parseInterval(w http.ResponseWriter, rawStart, rawEnd string) (time.Time, time.Time, bool) {
	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(rawStart))
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	endTime, err := time.Parse(time.RFC3339, strings.TrimSpace(rawEnd))
	if err != nil {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	startTime = startTime.In(h.loc)
	endTime = endTime.In(h.loc)
	if err := schedule.ValidateInterval(startTime, endTime); err != nil {
		http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	return startTime, endTime, true
}

func (h *AppointmentHandler) insertAppointmentEvent(ctx context.Context, tx pgx.Tx, topic, id string, appt *model.Appointment) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id":  id,
		"practitioner_id": appt.PractitionerID,
		"patient_id":      appt.PatientID,
		"service_id":      appt.ServiceID,
		"start_time":      appt.StartTime.UTC().Format(time.RFC3339),
		"end_time":        appt.EndTime.UTC().Format(time.RFC3339),
		"status":          appt.Status,
	})
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   id,
		EventType:     topic,
		Payload:       payload,
	})
}
