package rotation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylink-net/skylinkctl/internal/credentials"
	"github.com/skylink-net/skylinkctl/internal/logging"
	"github.com/skylink-net/skylinkctl/internal/rotation/notifications"
	"github.com/skylink-net/skylinkctl/internal/rotation/storage"
	"github.com/skylink-net/skylinkctl/internal/uri"
)

const testHost = "skylinkvpn-123456789012.us-central1.run.app"

// recordingProvider implements notifications.Provider for tests.
type recordingProvider struct {
	name string
	fail bool
	mu   sync.Mutex
	sent []notifications.RotationEvent
}

func (p *recordingProvider) Name() string                                      { return p.name }
func (p *recordingProvider) SupportsEvent(notifications.EventType) bool        { return true }
func (p *recordingProvider) Validate(context.Context) error                    { return nil }
func (p *recordingProvider) Send(_ context.Context, e notifications.RotationEvent) error {
	p.mu.Lock()
	p.sent = append(p.sent, e)
	p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("delivery refused")
	}
	return nil
}

func (p *recordingProvider) events() []notifications.RotationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifications.RotationEvent, len(p.sent))
	copy(out, p.sent)
	return out
}

type schedulerFixture struct {
	scheduler *Scheduler
	store     *storage.FileStorage
	logPath   string
	notifier  *notifications.Manager
}

func newFixture(t *testing.T, schedule string, providers ...notifications.Provider) *schedulerFixture {
	t.Helper()

	logger := logging.New(false, true)
	dir := t.TempDir()
	store := storage.NewFileStorage(dir)
	logPath := filepath.Join(dir, "rotation.log")

	notifier := notifications.NewManager(0, logger)
	for _, p := range providers {
		notifier.RegisterProvider(p)
	}

	s, err := NewScheduler(Config{
		ServiceName:   "skylinkvpn",
		Protocol:      uri.ProtocolTrojan,
		CanonicalHost: testHost,
		Schedule:      schedule,
	}, Deps{
		Generator: credentials.NewGenerator(logger),
		Notifier:  notifier,
		Logbook:   NewLogbook(logPath),
		Store:     store,
		Metrics:   NewMetrics(),
		Logger:    logger,
	})
	require.NoError(t, err)

	return &schedulerFixture{scheduler: s, store: store, logPath: logPath, notifier: notifier}
}

func TestNewScheduler_Validation(t *testing.T) {
	t.Parallel()

	logger := logging.New(false, true)
	deps := Deps{Generator: credentials.NewGenerator(logger), Logger: logger}

	_, err := NewScheduler(Config{Protocol: uri.ProtocolTrojan, Schedule: "@every 1h"}, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canonical host")

	_, err = NewScheduler(Config{Protocol: "socks", CanonicalHost: testHost}, deps)
	require.Error(t, err)

	_, err = NewScheduler(Config{Protocol: uri.ProtocolTrojan, CanonicalHost: testHost, Schedule: "not a schedule"}, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rotation schedule")
}

func TestScheduler_InitialSetIssuedAtConstruction(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "@every 1h")
	set := f.scheduler.Current()
	assert.True(t, strings.HasPrefix(set.Password, "Trojan-"))
	assert.NotEmpty(t, set.VLESSID)

	desc, err := f.scheduler.Descriptor()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(desc, "trojan://"+set.Password+"@"))
}

func TestScheduler_RotateReplacesWholeSet(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "@every 1h")
	before := f.scheduler.Current()

	require.NoError(t, f.scheduler.Rotate(context.Background()))
	after := f.scheduler.Current()

	// Only the trojan password is consumed, but every field rotates.
	assert.NotEqual(t, before.VLESSID, after.VLESSID)
	assert.NotEqual(t, before.GRPCID, after.GRPCID)
	assert.NotEqual(t, before.VMessID, after.VMessID)
	assert.Equal(t, 1, f.scheduler.Count())
}

func TestScheduler_RotateNotifiesAllDestinationsDespiteFailure(t *testing.T) {
	t.Parallel()

	healthy := &recordingProvider{name: "telegram"}
	failing := &recordingProvider{name: "webhook:ops", fail: true}
	trailing := &recordingProvider{name: "webhook:audit"}
	f := newFixture(t, "@every 1h", healthy, failing, trailing)

	require.NoError(t, f.scheduler.Rotate(context.Background()))

	// One failed destination does not block the others.
	require.Len(t, healthy.events(), 1)
	require.Len(t, failing.events(), 1)
	require.Len(t, trailing.events(), 1)

	event := healthy.events()[0]
	assert.Equal(t, notifications.EventTypeRotated, event.Type)
	assert.Equal(t, "skylinkvpn", event.Service)
	assert.Contains(t, event.Descriptor, "trojan://")
	assert.Equal(t, "1", event.Metadata["rotation_count"])

	// Delivery outcomes land in history; failure does not fail the tick.
	entries, err := f.store.GetHistory("skylinkvpn", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Deliveries, 3)

	byDest := map[string]storage.DeliveryRecord{}
	for _, d := range entries[0].Deliveries {
		byDest[d.Destination] = d
	}
	assert.Equal(t, "success", byDest["telegram"].Status)
	assert.Equal(t, "failure", byDest["webhook:ops"].Status)
	assert.Contains(t, byDest["webhook:ops"].Error, "delivery refused")
	assert.Equal(t, "success", byDest["webhook:audit"].Status)
}

func TestScheduler_RotateAppendsLogbook(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "@every 1h")
	require.NoError(t, f.scheduler.Rotate(context.Background()))
	require.NoError(t, f.scheduler.Rotate(context.Background()))

	data, err := os.ReadFile(f.logPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "==== rotation "))

	set := f.scheduler.Current()
	assert.Contains(t, string(data), set.Password)
	assert.Contains(t, string(data), set.VMessID)
}

func TestScheduler_StatusAccumulatesDeliveryCounts(t *testing.T) {
	t.Parallel()

	failing := &recordingProvider{name: "webhook:flaky", fail: true}
	f := newFixture(t, "@every 1h", failing)

	require.NoError(t, f.scheduler.Rotate(context.Background()))
	require.NoError(t, f.scheduler.Rotate(context.Background()))

	status, err := f.store.GetStatus("skylinkvpn")
	require.NoError(t, err)
	assert.Equal(t, 2, status.RotationCount)
	assert.Equal(t, 0, status.NotifyOK)
	assert.Equal(t, 2, status.NotifyFailed)
	assert.Equal(t, "degraded", status.Status)
	require.NotNil(t, status.NextRotation)
	assert.True(t, status.NextRotation.After(status.LastRotation))
}

func TestScheduler_NextRotation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "@every 6h")
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(6*time.Hour), f.scheduler.NextRotation(now))
}

func TestScheduler_TimedTick(t *testing.T) {
	t.Parallel()

	p := &recordingProvider{name: "telegram"}
	f := newFixture(t, "@every 1s", p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.scheduler.Start(ctx))
	defer f.scheduler.Stop()

	// Before one interval elapses: no rotation.
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, 0, f.scheduler.Count())

	// Slightly past one interval: exactly one rotation.
	time.Sleep(800 * time.Millisecond)
	assert.Equal(t, 1, f.scheduler.Count())
	assert.Len(t, p.events(), 1)
}

func TestScheduler_StartTwice(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "@every 1h")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.scheduler.Start(ctx))
	defer f.scheduler.Stop()
	assert.Error(t, f.scheduler.Start(ctx))
}
