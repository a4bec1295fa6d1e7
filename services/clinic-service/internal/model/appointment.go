package model

import "time"

// Appointment statuses. Cancelled appointments keep their row but no
// longer occupy the practitioner's time.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var ValidStatuses = map[string]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusCompleted: true,
	StatusCancelled: true,
}

type Appointment struct {
	ID             string    `json:"id"`
	PractitionerID string    `json:"practitioner_id"`
	PatientID      string    `json:"patient_id"`
	ServiceID      string    `json:"service_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Active reports whether the appointment still occupies its time slot.
func (a Appointment) Active() bool {
	return a.Status != StatusCancelled
}

// CalendarEntry is an appointment joined with the display names the
// calendar and list views render.
type CalendarEntry struct {
	Appointment
	PractitionerName string `json:"practitioner_name"`
	PatientName      string `json:"patient_name"`
	ServiceName      string `json:"service_name"`
}
