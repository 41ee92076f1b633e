// Package storage persists rotation metadata: the deployment record, a
// per-service status document, and a JSON history of rotation ticks.
// Credential values themselves are never stored here; they live only in
// the scheduler's memory and the plain-text logbook.
package storage

import (
	"time"
)

// Storage defines the interface for rotation metadata storage
type Storage interface {
	// SaveDeployment records the deployed service identity.
	SaveDeployment(dep *Deployment) error

	// GetDeployment retrieves the deployment record for a service.
	GetDeployment(serviceName string) (*Deployment, error)

	// SaveStatus saves the current rotation status for a service
	SaveStatus(status *RotationStatus) error

	// GetStatus retrieves the current rotation status for a service
	GetStatus(serviceName string) (*RotationStatus, error)

	// SaveHistory saves a rotation history entry
	SaveHistory(entry *HistoryEntry) error

	// GetHistory retrieves rotation history for a service
	GetHistory(serviceName string, limit int) ([]HistoryEntry, error)

	// CleanupOldEntries removes history entries older than the specified duration
	CleanupOldEntries(olderThan time.Duration) error
}

// Deployment records the stable identity of a deployed tunnel service.
// Written once by deploy, read by every later command.
type Deployment struct {
	ServiceName   string    `json:"service_name"`
	ProjectID     string    `json:"project_id"`
	Region        string    `json:"region"`
	Image         string    `json:"image"`
	CanonicalHost string    `json:"canonical_host"`
	Protocol      string    `json:"protocol"`
	DeployedAt    time.Time `json:"deployed_at"`
}

// RotationStatus represents the current status of a service's rotation
type RotationStatus struct {
	ServiceName   string     `json:"service_name"`
	Protocol      string     `json:"protocol"`
	Status        string     `json:"status"` // active, degraded, never_rotated
	LastRotation  time.Time  `json:"last_rotation"`
	NextRotation  *time.Time `json:"next_rotation,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	RotationCount int        `json:"rotation_count"`
	NotifyOK      int        `json:"notify_ok"`
	NotifyFailed  int        `json:"notify_failed"`
}

// HistoryEntry represents a single rotation tick
type HistoryEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
	Protocol    string    `json:"protocol"`
	Label       string    `json:"label"`
	Duration    int64     `json:"duration_ms"`

	// Delivery outcomes per destination; each attempt is independent.
	Deliveries []DeliveryRecord `json:"deliveries,omitempty"`
}

// DeliveryRecord is the persisted outcome of one notification attempt.
type DeliveryRecord struct {
	Destination string `json:"destination"`
	Status      string `json:"status"` // success, failure
	Error       string `json:"error,omitempty"`
}
