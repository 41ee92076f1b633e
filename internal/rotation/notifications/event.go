package notifications

import (
	"time"
)

// EventType represents the type of rotation lifecycle event.
type EventType string

const (
	// EventTypeDeployed indicates the service was deployed and the
	// initial credential set issued.
	EventTypeDeployed EventType = "deployed"

	// EventTypeRotated indicates a rotation tick replaced the
	// credential set.
	EventTypeRotated EventType = "rotated"

	// EventTypeFailed indicates a rotation tick could not complete.
	EventTypeFailed EventType = "failed"
)

// RotationEvent describes one credential rotation for delivery to the
// configured notification destinations.
type RotationEvent struct {
	// Type is the event kind (deployed, rotated, failed).
	Type EventType

	// Service is the deployed service name.
	Service string

	// Protocol is the active protocol selection (trojan, vless, ...).
	Protocol string

	// Descriptor is the freshly built connection string.
	Descriptor string

	// CanonicalHost is the stable hostname of the deployed service.
	CanonicalHost string

	// Error carries the failure for EventTypeFailed events.
	Error error

	// Timestamp is when the rotation happened.
	Timestamp time.Time

	// Metadata carries additional context (rotation count, schedule).
	Metadata map[string]string
}

// AllEventTypes returns all valid event types.
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeDeployed,
		EventTypeRotated,
		EventTypeFailed,
	}
}
