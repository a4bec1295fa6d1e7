package schedule

import (
	"errors"
	"time"

	"github.com/medbook-app/medbook/services/clinic-service/internal/model"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("practitioner already booked for this time")
)

// Overlaps reports whether two half-open intervals intersect.
// [s1,e1) overlaps [s2,e2) iff s1 < e2 && s2 < e1, so appointments that
// merely touch at a boundary do not conflict.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// HasConflict scans a practitioner's existing appointments for one that
// overlaps [start, end). Cancelled appointments never block a slot, and
// exclude names an appointment id to skip so a reschedule does not
// collide with itself. An empty exclude skips nothing.
func HasConflict(existing []model.Appointment, start, end time.Time, exclude string) bool {
	for _, a := range existing {
		if exclude != "" && a.ID == exclude {
			continue
		}
		if !a.Active() {
			continue
		}
		if Overlaps(start, end, a.StartTime, a.EndTime) {
			return true
		}
	}
	return false
}

// ValidateInterval rejects the malformed ranges the handlers must never
// pass further down: zero times and end at or before start.
func ValidateInterval(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ErrInvalidInput
	}
	if !end.After(start) {
		return ErrInvalidInput
	}
	return nil
}
