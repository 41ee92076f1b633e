// Package rotation implements the credential rotation scheduler: a
// single long-lived background task that regenerates the credential set
// on a fixed schedule, rebuilds the connection descriptor, and pushes it
// to the configured notification destinations and the local logbook.
package rotation

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/skylink-net/skylinkctl/internal/credentials"
	"github.com/skylink-net/skylinkctl/internal/logging"
	"github.com/skylink-net/skylinkctl/internal/rotation/notifications"
	"github.com/skylink-net/skylinkctl/internal/rotation/storage"
	"github.com/skylink-net/skylinkctl/internal/uri"
)

// DefaultSchedule rotates credentials every six hours.
const DefaultSchedule = "@every 6h"

// Config is the immutable configuration a Scheduler is constructed
// with. The credential set itself is scheduler-private mutable state.
type Config struct {
	// ServiceName is the deployed service this scheduler rotates for.
	ServiceName string

	// Protocol is the active protocol selection, fixed for the
	// process lifetime.
	Protocol uri.Protocol

	// CanonicalHost is the stable hostname of the deployed service.
	CanonicalHost string

	// Schedule is a cron spec, typically "@every <duration>".
	// A restart resets the interval from zero; time-to-next-tick is
	// never persisted.
	Schedule string
}

// Deps are the scheduler's collaborators.
type Deps struct {
	Generator *credentials.Generator
	Notifier  *notifications.Manager
	Logbook   *Logbook
	Store     storage.Storage
	Metrics   *Metrics
	Logger    *logging.Logger
}

// Scheduler owns the authoritative in-memory credential set and
// replaces it wholesale on every tick. Only the scheduler mutates the
// set after startup.
type Scheduler struct {
	cfg      Config
	schedule cron.Schedule
	deps     Deps
	cron     *cron.Cron

	mu    sync.RWMutex
	creds credentials.Set
	count int
}

// NewScheduler validates the configuration, generates the initial
// credential set, and returns a scheduler ready to Start.
func NewScheduler(cfg Config, deps Deps) (*Scheduler, error) {
	if cfg.CanonicalHost == "" {
		return nil, fmt.Errorf("canonical host is required")
	}
	if _, err := uri.ParseProtocol(string(cfg.Protocol)); err != nil {
		return nil, err
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}

	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid rotation schedule '%s': %w", cfg.Schedule, err)
	}

	s := &Scheduler{
		cfg:      cfg,
		schedule: schedule,
		deps:     deps,
	}

	// The initial set is issued at process start, alongside the
	// deployment; the first scheduled tick replaces it.
	s.creds = deps.Generator.Generate()

	return s, nil
}

// Start launches the recurring rotation task. The scheduler runs until
// ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		// Tick failures are logged and swallowed so the next tick
		// is unaffected.
		if err := s.Rotate(ctx); err != nil {
			s.deps.Logger.Error("Rotation tick failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule rotation: %w", err)
	}

	s.cron.Start()
	s.deps.Logger.Info("Rotation scheduler started (%s, schedule %s)", s.cfg.ServiceName, s.cfg.Schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the recurring task. In-flight ticks run to completion.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.deps.Logger.Debug("Rotation scheduler stopped")
}

// Current returns a copy of the active credential set.
func (s *Scheduler) Current() credentials.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Count returns the number of completed rotation ticks.
func (s *Scheduler) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Descriptor builds the connection descriptor for the active
// credential set.
func (s *Scheduler) Descriptor() (string, error) {
	return uri.Build(s.cfg.Protocol, s.Current(), s.cfg.CanonicalHost)
}

// NextRotation returns when the next tick is due after now.
func (s *Scheduler) NextRotation(now time.Time) time.Time {
	return s.schedule.Next(now)
}

// Rotate executes one rotation tick: regenerate every credential,
// rebuild the descriptor, fan out notifications, and append the
// logbook and metadata records. Everything after descriptor building
// is best-effort; delivery and storage failures are logged, never
// retried, and never abort the tick.
func (s *Scheduler) Rotate(ctx context.Context) error {
	started := time.Now()

	// All four values are regenerated together even though only one
	// is consumed by the active protocol, keeping the set uniform.
	set := s.deps.Generator.Generate()

	s.mu.Lock()
	s.creds = set
	s.count++
	count := s.count
	s.mu.Unlock()

	descriptor, err := uri.Build(s.cfg.Protocol, set, s.cfg.CanonicalHost)
	if err != nil {
		// Unreachable with the validated protocol enumeration.
		s.deps.Metrics.RecordTick(s.cfg.ServiceName, string(s.cfg.Protocol), "failure", started.Unix())
		return fmt.Errorf("failed to build descriptor: %w", err)
	}

	event := notifications.RotationEvent{
		Type:          notifications.EventTypeRotated,
		Service:       s.cfg.ServiceName,
		Protocol:      string(s.cfg.Protocol),
		Descriptor:    descriptor,
		CanonicalHost: s.cfg.CanonicalHost,
		Timestamp:     started,
		Metadata: map[string]string{
			"rotation_count": strconv.Itoa(count),
			"schedule":       s.cfg.Schedule,
		},
	}

	// Each destination is attempted independently; results feed the
	// history record.
	results := s.deps.Notifier.Dispatch(ctx, event)

	if err := s.deps.Logbook.Append(started, set, descriptor); err != nil {
		s.deps.Logger.Warn("Failed to append rotation log: %v", err)
	}

	s.persist(started, count, results)

	s.deps.Metrics.RecordTick(s.cfg.ServiceName, string(s.cfg.Protocol), "success", started.Unix())
	s.deps.Logger.Info("Rotated credentials for %s (tick %d, %d destinations)",
		s.cfg.ServiceName, count, len(results))

	return nil
}

// persist saves the history entry and rolls the status counters.
// Storage failures are logged and ignored, matching the tick's
// log-and-continue policy.
func (s *Scheduler) persist(started time.Time, count int, results []notifications.DeliveryResult) {
	deliveries := make([]storage.DeliveryRecord, 0, len(results))
	okCount, failCount := 0, 0
	for _, r := range results {
		record := storage.DeliveryRecord{Destination: r.Provider, Status: "success"}
		if r.Err != nil {
			record.Status = "failure"
			record.Error = r.Err.Error()
			failCount++
		} else {
			okCount++
		}
		deliveries = append(deliveries, record)
	}

	entry := &storage.HistoryEntry{
		Timestamp:   started,
		ServiceName: s.cfg.ServiceName,
		Protocol:    string(s.cfg.Protocol),
		Label:       s.cfg.Protocol.Label(),
		Duration:    time.Since(started).Milliseconds(),
		Deliveries:  deliveries,
	}
	if err := s.deps.Store.SaveHistory(entry); err != nil {
		s.deps.Logger.Warn("Failed to save rotation history: %v", err)
	}

	next := s.schedule.Next(started)
	status := &storage.RotationStatus{
		ServiceName:   s.cfg.ServiceName,
		Protocol:      string(s.cfg.Protocol),
		Status:        "active",
		LastRotation:  started,
		NextRotation:  &next,
		RotationCount: count,
		NotifyOK:      okCount,
		NotifyFailed:  failCount,
	}
	if existing, err := s.deps.Store.GetStatus(s.cfg.ServiceName); err == nil {
		status.NotifyOK += existing.NotifyOK
		status.NotifyFailed += existing.NotifyFailed
	}
	if failCount > 0 && okCount == 0 && len(results) > 0 {
		status.Status = "degraded"
	}
	if err := s.deps.Store.SaveStatus(status); err != nil {
		s.deps.Logger.Warn("Failed to save rotation status: %v", err)
	}
}
