package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
	"github.com/nerrad567/gray-logic-hubsync/internal/hub"
)

// DefaultRefreshInterval is used when Options.RefreshInterval is zero.
const DefaultRefreshInterval = 30 * time.Second

// Fetcher reads the controller's collections through a managed session.
type Fetcher interface {
	EnsureSession(ctx context.Context) (hub.Session, error)
	FetchAll(ctx context.Context) (*hub.CollectionSnapshot, error)
	Invalidate()
}

// Commander issues writes to the controller in wire units.
type Commander interface {
	SetLightLevel(ctx context.Context, id hub.ID, level int) error
	SetShadePosition(ctx context.Context, id hub.ID, position int) error
	RecallScene(ctx context.Context, id hub.ID) error
	SetThermostatSetPoint(ctx context.Context, id hub.ID, kind string, temperature int) error
	SetThermostatMode(ctx context.Context, id hub.ID, mode string) error
	SetThermostatFanMode(ctx context.Context, id hub.ID, mode string) error
	LockDoor(ctx context.Context, id hub.ID) error
	UnlockDoor(ctx context.Context, id hub.ID) error
	SetSecurityState(ctx context.Context, id hub.ID, state string) error
}

// Client is everything the synchronizer needs from the controller.
// *hub.Client satisfies it.
type Client interface {
	Fetcher
	Commander
}

// StateListener receives every device after each successful pass.
type StateListener interface {
	UpdateState(d device.Device)
}

// ListenerFunc adapts a function to StateListener.
type ListenerFunc func(d device.Device)

// UpdateState calls f(d).
func (f ListenerFunc) UpdateState(d device.Device) { f(d) }

// Logger defines the logging interface used by the synchronizer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Synchronizer.
type Options struct {
	// Client is the controller client (required).
	Client Client

	// AllowedTypes is the set of resolved device types to keep (required).
	AllowedTypes map[string]bool

	// Dedupe collapses duplicate device ids across collections.
	Dedupe bool

	// RefreshInterval is the time between scheduled passes. Default: 30s.
	RefreshInterval time.Duration

	// Registerer receives the synchronizer metrics. Default: a private registry.
	Registerer prometheus.Registerer

	// Now overrides the clock.
	Now func() time.Time

	Logger Logger
}

// Snapshot is the result of one successful pass. Values handed out by the
// Synchronizer are copies; mutating them has no effect on later reads.
type Snapshot struct {
	Devices     []device.Device `json:"devices"`
	Rooms       []hub.Room      `json:"rooms"`
	Unsupported []string        `json:"unsupported_collections,omitempty"`
	RefreshedAt time.Time       `json:"refreshed_at"`
	Generation  uint64          `json:"generation"`
}

func (s *Snapshot) clone() Snapshot {
	if s == nil {
		return Snapshot{Devices: []device.Device{}, Rooms: []hub.Room{}}
	}
	return Snapshot{
		Devices:     device.CopyDevices(s.Devices),
		Rooms:       append([]hub.Room(nil), s.Rooms...),
		Unsupported: append([]string(nil), s.Unsupported...),
		RefreshedAt: s.RefreshedAt,
		Generation:  s.Generation,
	}
}

// Health summarises the most recent passes.
type Health struct {
	Generation  uint64    `json:"generation"`
	Devices     int       `json:"devices"`
	RefreshedAt time.Time `json:"refreshed_at"`
	LastAttempt time.Time `json:"last_attempt"`
	LastError   string    `json:"last_error,omitempty"`
}

// Synchronizer keeps the canonical device snapshot and applies commands.
//
// Thread Safety: All methods are safe for concurrent use.
type Synchronizer struct {
	client     Client
	translator *device.Translator
	aggregate  device.AggregateOptions
	interval   time.Duration
	now        func() time.Time
	metrics    *metrics
	logger     Logger

	snapshot atomic.Pointer[Snapshot]

	// passMu serialises discovery passes.
	passMu sync.Mutex

	statusMu    sync.RWMutex
	lastAttempt time.Time
	lastErr     error

	listeners   []StateListener
	listenersMu sync.RWMutex

	// Shutdown coordination
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
}

// New creates a Synchronizer. Call Start to begin scheduled passes.
func New(opts Options) (*Synchronizer, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if len(opts.AllowedTypes) == 0 {
		return nil, fmt.Errorf("allowed types are required")
	}

	interval := opts.RefreshInterval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	allowed := make(map[string]bool, len(opts.AllowedTypes))
	for t, ok := range opts.AllowedTypes {
		allowed[t] = ok
	}

	return &Synchronizer{
		client:     opts.Client,
		translator: device.NewTranslator(logger),
		aggregate:  device.AggregateOptions{AllowedTypes: allowed, Dedupe: opts.Dedupe},
		interval:   interval,
		now:        now,
		metrics:    newMetrics(reg),
		logger:     logger,
		done:       make(chan struct{}),
	}, nil
}

// AddListener registers l to receive every device after each successful pass.
func (s *Synchronizer) AddListener(l StateListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Refresh runs a discovery pass now, waiting for any pass in flight.
//
// On success the new device list replaces the snapshot and is returned. On
// failure the previous device list is returned unchanged together with the
// error (hub.ErrAuth or hub.ErrDiscovery).
func (s *Synchronizer) Refresh(ctx context.Context) ([]device.Device, error) {
	s.passMu.Lock()
	defer s.passMu.Unlock()
	return s.refreshLocked(ctx)
}

// refreshLocked runs one pass. The caller holds passMu.
func (s *Synchronizer) refreshLocked(ctx context.Context) ([]device.Device, error) {
	start := s.now()
	s.statusMu.Lock()
	s.lastAttempt = start
	s.statusMu.Unlock()

	next, err := s.discover(ctx)
	s.metrics.refreshDuration.Observe(s.now().Sub(start).Seconds())
	s.metrics.refreshTotal.WithLabelValues(result(err)).Inc()

	s.statusMu.Lock()
	s.lastErr = err
	s.statusMu.Unlock()

	if err != nil {
		if errors.Is(err, hub.ErrUnauthorized) {
			// The cached key was rejected; log in again on the next pass.
			s.client.Invalidate()
		}
		s.logger.Warn("refresh failed, keeping previous snapshot", "error", err)
		return s.Devices(), err
	}

	s.snapshot.Store(next)
	s.metrics.devices.Set(float64(len(next.Devices)))
	s.logger.Debug("refresh complete",
		"devices", len(next.Devices),
		"generation", next.Generation,
		"duration", s.now().Sub(start),
	)

	s.notify(next.Devices)
	return device.CopyDevices(next.Devices), nil
}

func (s *Synchronizer) discover(ctx context.Context) (*Snapshot, error) {
	if _, err := s.client.EnsureSession(ctx); err != nil {
		return nil, err
	}

	collections, err := s.client.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	devices := device.Aggregate(collections, s.aggregate)
	s.translator.FillAll(devices)

	var unsupported []string
	if !collections.DoorLocks.Supported {
		unsupported = append(unsupported, hub.CollectionDoorLocks)
	}
	if !collections.SecurityDevices.Supported {
		unsupported = append(unsupported, hub.CollectionSecurityDevices)
	}

	var generation uint64 = 1
	if prev := s.snapshot.Load(); prev != nil {
		generation = prev.Generation + 1
	}

	return &Snapshot{
		Devices:     devices,
		Rooms:       append([]hub.Room{}, collections.Rooms...),
		Unsupported: unsupported,
		RefreshedAt: s.now(),
		Generation:  generation,
	}, nil
}

// notify pushes each device to each listener. A panicking listener is
// logged and does not affect the others.
func (s *Synchronizer) notify(devices []device.Device) {
	s.listenersMu.RLock()
	listeners := append([]StateListener(nil), s.listeners...)
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		for i := range devices {
			s.deliver(l, *devices[i].DeepCopy())
		}
	}
}

func (s *Synchronizer) deliver(l StateListener, d device.Device) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("state listener panicked", "device_id", d.ID, "panic", r)
		}
	}()
	l.UpdateState(d)
}

// Start runs an initial pass and then one pass per interval until Stop is
// called or ctx is cancelled. Calling Start more than once has no effect.
func (s *Synchronizer) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		s.wg.Add(1)
		go s.pollLoop(ctx)
		s.logger.Info("synchronizer started", "interval", s.interval)
	})
}

// Stop ends scheduled passes and waits for the loop to exit. An in-flight
// pass is cancelled. Safe to call multiple times.
func (s *Synchronizer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.logger.Info("synchronizer stopped")
	})
}

func (s *Synchronizer) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	s.scheduledPass(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.scheduledPass(ctx)
		}
	}
}

// scheduledPass runs a pass unless one is already in flight.
func (s *Synchronizer) scheduledPass(ctx context.Context) bool {
	if !s.passMu.TryLock() {
		s.metrics.refreshSkipped.Inc()
		s.logger.Debug("refresh skipped, previous pass still running")
		return false
	}
	defer s.passMu.Unlock()

	// Errors are logged by refreshLocked; the next tick tries again.
	_, _ = s.refreshLocked(ctx) //nolint:errcheck // scheduled passes never propagate
	return true
}

// Devices returns a copy of the current device list (empty before the first
// successful pass).
func (s *Synchronizer) Devices() []device.Device {
	snap := s.snapshot.Load()
	if snap == nil {
		return []device.Device{}
	}
	return device.CopyDevices(snap.Devices)
}

// Device returns a copy of one device from the current snapshot.
func (s *Synchronizer) Device(id string) (device.Device, bool) {
	d, ok := s.lookup(id)
	if !ok {
		return device.Device{}, false
	}
	return *d.DeepCopy(), true
}

// lookup finds a device in the current snapshot without copying it.
// The result must not be modified.
func (s *Synchronizer) lookup(id string) (*device.Device, bool) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, false
	}
	for i := range snap.Devices {
		if snap.Devices[i].ID == id {
			return &snap.Devices[i], true
		}
	}
	return nil, false
}

// Snapshot returns a copy of the current snapshot.
func (s *Synchronizer) Snapshot() Snapshot {
	return s.snapshot.Load().clone()
}

// Health reports the outcome of the most recent passes.
func (s *Synchronizer) Health() Health {
	h := Health{}
	if snap := s.snapshot.Load(); snap != nil {
		h.Generation = snap.Generation
		h.Devices = len(snap.Devices)
		h.RefreshedAt = snap.RefreshedAt
	}

	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	h.LastAttempt = s.lastAttempt
	if s.lastErr != nil {
		h.LastError = s.lastErr.Error()
	}
	return h
}
