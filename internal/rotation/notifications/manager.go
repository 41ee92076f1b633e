package notifications

import (
	"context"
	"sync"
	"time"

	dserrors "github.com/skylink-net/skylinkctl/internal/errors"
	"github.com/skylink-net/skylinkctl/internal/logging"
)

const (
	// DefaultQueueSize is the maximum number of events that can be queued.
	DefaultQueueSize = 100

	// drainTimeout bounds delivery attempts while shutting down.
	drainTimeout = 5 * time.Second
)

// Manager coordinates notification delivery across multiple providers.
// It uses an async bounded queue so a slow destination never stalls a
// rotation tick.
type Manager struct {
	providers []Provider
	queue     chan RotationEvent
	logger    *logging.Logger
	wg        sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	done      chan struct{}

	droppedCount int64
	droppedMu    sync.Mutex
}

// NewManager creates a notification manager with the specified queue size.
// If queueSize is 0, DefaultQueueSize is used.
func NewManager(queueSize int, logger *logging.Logger) *Manager {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Manager{
		providers: make([]Provider, 0),
		queue:     make(chan RotationEvent, queueSize),
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// RegisterProvider adds a notification provider to the manager.
func (m *Manager) RegisterProvider(provider Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = append(m.providers, provider)
}

// Providers returns a copy of the registered providers.
func (m *Manager) Providers() []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	providers := make([]Provider, len(m.providers))
	copy(providers, m.providers)
	return providers
}

// Start begins the background delivery worker. It must be called before
// sending events.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.worker(ctx)
}

// Stop gracefully shuts down the manager, delivering queued events first.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
}

// Send queues a rotation event for delivery. If the queue is full the
// event is dropped and counted; Send never blocks the caller.
func (m *Manager) Send(event RotationEvent) {
	m.mu.RLock()
	if !m.running {
		m.mu.RUnlock()
		return
	}
	m.mu.RUnlock()

	select {
	case m.queue <- event:
	default:
		m.droppedMu.Lock()
		m.droppedCount++
		m.droppedMu.Unlock()

		incrementDroppedCounter()
		m.logger.Warn("Notification queue full, dropped %s event", event.Type)
	}
}

// DroppedCount returns the number of events dropped due to queue overflow.
func (m *Manager) DroppedCount() int64 {
	m.droppedMu.Lock()
	defer m.droppedMu.Unlock()
	return m.droppedCount
}

// worker processes events from the queue and dispatches to providers.
func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			m.drainQueue()
			return
		case <-m.done:
			m.drainQueue()
			return
		case event, ok := <-m.queue:
			if !ok {
				return
			}
			m.Dispatch(ctx, event)
		}
	}
}

// drainQueue delivers any remaining queued events with a short timeout.
func (m *Manager) drainQueue() {
	for {
		select {
		case event, ok := <-m.queue:
			if !ok {
				return
			}
			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			m.Dispatch(drainCtx, event)
			cancel()
		default:
			return
		}
	}
}

// Dispatch sends an event to every provider that supports it. Each
// destination is an independent attempt; failures are collected and
// logged, never retried.
func (m *Manager) Dispatch(ctx context.Context, event RotationEvent) []DeliveryResult {
	m.mu.RLock()
	providers := m.providers
	m.mu.RUnlock()

	results := make([]DeliveryResult, 0, len(providers))
	for _, provider := range providers {
		if !provider.SupportsEvent(event.Type) {
			continue
		}

		err := provider.Send(ctx, event)
		results = append(results, DeliveryResult{Provider: provider.Name(), Err: err})

		if err != nil {
			recordDelivery(provider.Name(), "failure")
			if dserrors.IsTransient(err) {
				m.logger.Warn("Notification via %s failed (transient, next rotation retries naturally): %v",
					provider.Name(), err)
			} else {
				m.logger.Warn("Notification via %s failed: %v", provider.Name(), err)
			}
		} else {
			recordDelivery(provider.Name(), "success")
			m.logger.Debug("Notification delivered via %s", provider.Name())
		}
	}
	return results
}
