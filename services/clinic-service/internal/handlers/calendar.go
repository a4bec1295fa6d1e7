package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/medbook-app/medbook/services/clinic-service/internal/calendar"
	"github.com/medbook-app/medbook/services/clinic-service/internal/schedule"
)

type monthGridResponse struct {
	Month string                `json:"month"`
	Grid  []*calendar.DayBucket `json:"grid"`
}

// Calendar serves the month view grid. The month query parameter uses
// the fixed YYYY-MM layout and is interpreted in the clinic's timezone.
func (h *AppointmentHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	monthStr := strings.TrimSpace(r.URL.Query().Get("month"))
	if monthStr == "" {
		monthStr = time.Now().In(h.loc).Format("2006-01")
	}
	ref, err := time.ParseInLocation("2006-01", monthStr, h.loc)
	if err != nil {
		http.Error(w, "month must be formatted as YYYY-MM", http.StatusBadRequest)
		return
	}

	practitionerID := strings.TrimSpace(r.URL.Query().Get("practitioner_id"))
	if practitionerID != "" && !validUUID(practitionerID) {
		http.Error(w, "invalid practitioner_id", http.StatusBadRequest)
		return
	}

	monthStart := ref
	monthEnd := monthStart.AddDate(0, 1, 0)

	entries, err := h.repo.ListForRange(r.Context(), monthStart, monthEnd)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	if practitionerID != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.PractitionerID == practitionerID {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	writeJSON(w, http.StatusOK, monthGridResponse{
		Month: monthStr,
		Grid:  calendar.BuildMonthGrid(entries, ref),
	})
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Slots lists open slot start times for a practitioner on one day.
// Workday bounds and slot sizing come from query parameters with
// clinic-wide defaults.
func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	practitionerID := strings.TrimSpace(q.Get("practitioner_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if practitionerID == "" || dateStr == "" {
		http.Error(w, "practitioner_id and date are required", http.StatusBadRequest)
		return
	}
	if !validUUID(practitionerID) {
		http.Error(w, "invalid practitioner_id", http.StatusBadRequest)
		return
	}

	day, err := time.ParseInLocation(calendar.DateKeyFormat, dateStr, h.loc)
	if err != nil {
		http.Error(w, "date must be formatted as YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	durationMins := intParam(q.Get("duration_minutes"), 30, 1, 8*60)
	stepMins := intParam(q.Get("slot_step_minutes"), 15, 1, 120)
	windowStart, ok := clockOnDay(day, strings.TrimSpace(q.Get("workday_start")), "09:00", h.loc)
	if !ok {
		http.Error(w, "invalid workday_start", http.StatusBadRequest)
		return
	}
	windowEnd, ok := clockOnDay(day, strings.TrimSpace(q.Get("workday_end")), "17:00", h.loc)
	if !ok {
		http.Error(w, "invalid workday_end", http.StatusBadRequest)
		return
	}
	if !windowEnd.After(windowStart) {
		http.Error(w, "workday_end must be after workday_start", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := h.repo.ListForPractitionerDay(ctx, tx, practitionerID, day, day.AddDate(0, 0, 1))
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	starts := schedule.AvailableSlots(
		windowStart,
		windowEnd,
		time.Duration(durationMins)*time.Minute,
		time.Duration(stepMins)*time.Minute,
		existing,
		time.Now().In(h.loc),
	)

	resp := make([]slotItem, 0, len(starts))
	for _, s := range starts {
		resp = append(resp, slotItem{
			StartTime: s.Format(time.RFC3339),
			EndTime:   s.Add(time.Duration(durationMins) * time.Minute).Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func intParam(raw string, fallback, min, max int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return fallback
	}
	return n
}

func clockOnDay(day time.Time, raw, fallback string, loc *time.Location) (time.Time, bool) {
	if raw == "" {
		raw = fallback
	}
	clock, err := time.Parse("15:04", raw)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), true
}
