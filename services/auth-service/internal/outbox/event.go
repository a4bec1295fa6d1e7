package outbox

// Kafka topics published by the auth service. The topic doubles as the
// event_type column in outbox_events.
const (
	TopicUserRegistered = "auth.user.registered.v1"
	TopicAuditEvent     = "auth.audit.v1"
)

type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
