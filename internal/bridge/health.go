package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hubsync/internal/synchronizer"
)

// HealthPublisher publishes health reports.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// HealthSource reports synchronizer health.
type HealthSource interface {
	Health() synchronizer.Health
}

// HealthReporterConfig configures a HealthReporter.
type HealthReporterConfig struct {
	Version string

	// Interval between reports. Default: 30s.
	Interval time.Duration

	Publisher HealthPublisher
	Source    HealthSource
	QoS       byte
	Logger    Logger
}

// HealthReporter publishes periodic health reports.
type HealthReporter struct {
	version   string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher
	source    HealthSource
	qos       byte
	logger    Logger

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	var logger Logger = noopLogger{}
	if cfg.Logger != nil {
		logger = cfg.Logger
	}
	return &HealthReporter{
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		source:    cfg.Source,
		qos:       cfg.QoS,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start publishes a report now and then once per interval.
func (h *HealthReporter) Start(ctx context.Context) {
	h.startOnce.Do(func() {
		h.wg.Add(1)
		go h.reportLoop(ctx)
	})
}

// Stop ends reporting and publishes a final "stopping" report.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
		if err := h.publishStatus(HealthStopping, ""); err != nil {
			h.logger.Debug("failed to publish stopping status", "error", err)
		}
	})
}

// PublishStarting publishes a "starting" report.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "")
}

// PublishNow publishes the current status.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logger.Warn("failed to publish initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logger.Warn("failed to publish health", "error", err)
			}
		}
	}
}

// determineStatus is unhealthy when no pass has ever succeeded, degraded when
// the last pass failed but an older snapshot is still served, else healthy.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.source == nil {
		return HealthHealthy, ""
	}
	health := h.source.Health()
	switch {
	case health.LastError != "" && health.Generation == 0:
		return HealthUnhealthy, health.LastError
	case health.LastError != "":
		return HealthDegraded, health.LastError
	case health.Generation == 0:
		return HealthStarting, "waiting for first refresh"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return mqtt.ErrNotConnected
	}

	msg := HealthMessage{
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Reason:        reason,
	}
	if h.source != nil {
		health := h.source.Health()
		msg.Devices = health.Devices
		msg.Generation = health.Generation
		if !health.RefreshedAt.IsZero() {
			refreshed := health.RefreshedAt
			msg.LastRefresh = &refreshed
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.publisher.Publish(mqtt.Topics{}.SystemHealth(), payload, h.qos, true)
}
