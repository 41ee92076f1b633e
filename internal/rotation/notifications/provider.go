// Package notifications provides best-effort delivery of rotation events
// to chat and webhook destinations. Delivery is fire-and-forget: a failed
// destination is logged, never retried, and never blocks the others.
package notifications

import (
	"context"
)

// Provider defines the interface for a notification destination.
type Provider interface {
	// Name returns the provider name (e.g., "telegram:12345", "webhook:ops").
	Name() string

	// Send delivers a notification for the given rotation event.
	Send(ctx context.Context, event RotationEvent) error

	// SupportsEvent returns true if this provider handles the given event type.
	SupportsEvent(eventType EventType) bool

	// Validate checks if the provider configuration is valid.
	Validate(ctx context.Context) error
}

// DeliveryResult records the outcome of one independent delivery attempt.
type DeliveryResult struct {
	Provider string
	Err      error
}
