package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Topics emitted by the scheduling core. Consumers key their inbox
// dedupe on the event_id header, not the topic.
const (
	TopicAppointmentBooked      = "scheduling.appointment.booked.v1"
	TopicAppointmentRescheduled = "scheduling.appointment.rescheduled.v1"
	TopicAppointmentCancelled   = "scheduling.appointment.cancelled.v1"
	TopicAppointmentStatus      = "scheduling.appointment.status.v1"
	TopicPaymentReceived        = "scheduling.payment.received.v1"
)
