package schedule

import (
	"testing"
	"time"

	"github.com/medbook-app/medbook/services/clinic-service/internal/model"
)

func appt(id string, start, end time.Time, status string) model.Appointment {
	return model.Appointment{
		ID:             id,
		PractitionerID: "prac-1",
		StartTime:      start,
		EndTime:        end,
		Status:         status,
	}
}

func TestHasConflict_Overlapping(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	existing := []model.Appointment{
		appt("a1", day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute), model.StatusConfirmed),
	}

	// 10:15-10:45 overlaps 10:00-10:30.
	if !HasConflict(existing, day.Add(10*time.Hour+15*time.Minute), day.Add(10*time.Hour+45*time.Minute), "") {
		t.Fatal("expected overlap to conflict")
	}
	// Identical interval conflicts.
	if !HasConflict(existing, day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute), "") {
		t.Fatal("expected identical interval to conflict")
	}
	// Containment conflicts both ways.
	if !HasConflict(existing, day.Add(10*time.Hour+5*time.Minute), day.Add(10*time.Hour+10*time.Minute), "") {
		t.Fatal("expected contained interval to conflict")
	}
	if !HasConflict(existing, day.Add(9*time.Hour), day.Add(12*time.Hour), "") {
		t.Fatal("expected containing interval to conflict")
	}
}

func TestHasConflict_TouchingBoundaries(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	existing := []model.Appointment{
		appt("a1", day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute), model.StatusConfirmed),
	}

	// 10:30-11:00 starts exactly where the existing one ends.
	if HasConflict(existing, day.Add(10*time.Hour+30*time.Minute), day.Add(11*time.Hour), "") {
		t.Fatal("back-to-back appointments must not conflict")
	}
	// 09:30-10:00 ends exactly where the existing one starts.
	if HasConflict(existing, day.Add(9*time.Hour+30*time.Minute), day.Add(10*time.Hour), "") {
		t.Fatal("back-to-back appointments must not conflict")
	}
}

func TestHasConflict_CancelledFreesSlot(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	existing := []model.Appointment{
		appt("a1", day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute), model.StatusCancelled),
	}

	if HasConflict(existing, day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute), "") {
		t.Fatal("cancelled appointment must not block the slot")
	}
}

func TestHasConflict_ExcludeSelf(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	existing := []model.Appointment{
		appt("a1", day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute), model.StatusConfirmed),
		appt("a2", day.Add(11*time.Hour), day.Add(11*time.Hour+30*time.Minute), model.StatusConfirmed),
	}

	// Rescheduling a1 within its own window is fine.
	if HasConflict(existing, day.Add(10*time.Hour+10*time.Minute), day.Add(10*time.Hour+40*time.Minute), "a1") {
		t.Fatal("appointment must not conflict with itself during reschedule")
	}
	// But moving a1 onto a2 still conflicts.
	if !HasConflict(existing, day.Add(11*time.Hour+10*time.Minute), day.Add(11*time.Hour+40*time.Minute), "a1") {
		t.Fatal("expected conflict with a different appointment")
	}
}

func TestHasConflict_Empty(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if HasConflict(nil, day.Add(10*time.Hour), day.Add(11*time.Hour), "") {
		t.Fatal("no existing appointments means no conflict")
	}
}

func TestValidateInterval(t *testing.T) {
	day := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	if err := ValidateInterval(day, day.Add(30*time.Minute)); err != nil {
		t.Fatalf("valid interval rejected: %v", err)
	}
	if err := ValidateInterval(day, day); err != ErrInvalidInput {
		t.Fatalf("zero-length interval: got %v, want ErrInvalidInput", err)
	}
	if err := ValidateInterval(day.Add(time.Hour), day); err != ErrInvalidInput {
		t.Fatalf("inverted interval: got %v, want ErrInvalidInput", err)
	}
	if err := ValidateInterval(time.Time{}, day); err != ErrInvalidInput {
		t.Fatalf("zero start: got %v, want ErrInvalidInput", err)
	}
}
