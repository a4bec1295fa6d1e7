package schedule

import (
	"time"

	"github.com/medbook-app/medbook/services/clinic-service/internal/model"
)

// AvailableSlots returns slot start times within [windowStart, windowEnd) where an
// appointment of length duration would not overlap any active existing appointment.
//
// All times are expected to be in the same location (timezone).
func AvailableSlots(windowStart, windowEnd time.Time, duration, step time.Duration, existing []model.Appointment, now time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) {
		return nil
	}
	if windowStart.Add(duration).After(windowEnd) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(step) {
		if t.Before(now) {
			continue
		}
		if !HasConflict(existing, t, t.Add(duration), "") {
			slots = append(slots, t)
		}
	}
	return slots
}
