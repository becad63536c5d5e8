package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-hubsync/internal/accessory"
	"github.com/nerrad567/gray-logic-hubsync/internal/device"
	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hubsync/internal/synchronizer"
)

// commandTimeout bounds one controller write triggered over MQTT.
const commandTimeout = 15 * time.Second

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishJSON(topic string, v any, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Source is the device state and command sink the bridge presents.
// *synchronizer.Synchronizer satisfies it.
type Source interface {
	accessory.Applier
	Device(id string) (device.Device, bool)
	Health() synchronizer.Health
}

// Logger defines the logging interface used by the bridge.
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

// Options configures a Bridge.
type Options struct {
	MQTT   MQTTClient
	Source Source

	// QoS for state, ack and health messages. Default: 1.
	QoS byte

	// HealthInterval is the time between health reports. Default: 30s.
	HealthInterval time.Duration

	// Version is reported in health messages.
	Version string

	Logger Logger
}

// Bridge publishes device state to MQTT and applies commands received from it.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt   MQTTClient
	source Source
	qos    byte
	health *HealthReporter
	logger Logger

	// published holds the last state sent per device.
	published   map[string]map[string]any
	publishedMu sync.Mutex

	// Shutdown coordination
	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once

	// stopping is set under lifeMu before Stop waits on wg, so no command
	// joins wg after the wait has begun.
	lifeMu   sync.Mutex
	stopping bool
}

// New creates a bridge. Register it with the synchronizer's AddListener and
// call Start to accept commands.
func New(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("source is required")
	}

	qos := opts.QoS
	if qos == 0 {
		qos = 1
	}
	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		mqtt:      opts.MQTT,
		source:    opts.Source,
		qos:       qos,
		logger:    logger,
		published: make(map[string]map[string]any),
		ctx:       ctx,
		ctxCancel: cancel,
	}
	b.health = NewHealthReporter(HealthReporterConfig{
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTT,
		Source:    opts.Source,
		QoS:       qos,
		Logger:    logger,
	})
	return b, nil
}

// Start subscribes to command topics and begins health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logger.Warn("failed to publish starting status", "error", err)
	}

	topic := mqtt.Topics{}.AllCommands()
	if err := b.mqtt.Subscribe(topic, b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logger.Info("subscribed to commands", "topic", topic)

	b.health.Start(ctx)
	return nil
}

// Stop unsubscribes, cancels in-flight commands and stops health reporting.
// Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.lifeMu.Lock()
		b.stopping = true
		b.lifeMu.Unlock()

		b.ctxCancel()
		if err := b.mqtt.Unsubscribe(mqtt.Topics{}.AllCommands()); err != nil {
			b.logger.Debug("unsubscribe on stop failed", "error", err)
		}
		b.wg.Wait()
		b.health.Stop()
		b.logger.Info("bridge stopped")
	})
}

// UpdateState publishes d's state if it changed since the last publish.
// It implements synchronizer.StateListener.
func (b *Bridge) UpdateState(d device.Device) {
	acc := accessory.For(d, nil)
	values := accessory.Values(acc)

	b.publishedMu.Lock()
	prev, seen := b.published[d.ID]
	unchanged := seen && valuesEqual(prev, values)
	b.publishedMu.Unlock()
	if unchanged {
		return
	}

	msg := StateMessage{
		DeviceID:    d.ID,
		Timestamp:   time.Now().UTC(),
		Kind:        acc.Kind(),
		Type:        d.Type,
		Name:        d.Name,
		DisplayName: d.DisplayName,
		RoomName:    d.RoomName,
		Writable:    slices.DeleteFunc(acc.Fields(), func(f string) bool { return !acc.Writable(f) }),
		State:       values,
	}
	if err := b.publish(mqtt.Topics{}.State(d.ID), msg, true); err != nil {
		b.logger.Warn("failed to publish state", "device_id", d.ID, "error", err)
		return
	}

	b.publishedMu.Lock()
	b.published[d.ID] = values
	b.publishedMu.Unlock()
}

// ClearStateCache forgets what was published so the next pass republishes
// every device. Call it after a broker reconnect.
func (b *Bridge) ClearStateCache() {
	b.publishedMu.Lock()
	defer b.publishedMu.Unlock()
	b.published = make(map[string]map[string]any)
}

func valuesEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || av != bv {
			return false
		}
	}
	return true
}

// handleCommand is the MQTT handler for hubsync/command/{id}.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	deviceID, ok := mqtt.Topics{}.DeviceID(topic)
	if !ok {
		return fmt.Errorf("unexpected command topic %q", topic)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.publishAck(deviceID, CommandMessage{ID: uuid.NewString()}, fmt.Errorf("parsing command: %w", err))
		return nil
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	b.logger.Info("received command",
		"command_id", cmd.ID,
		"device_id", deviceID,
		"field", cmd.Field,
		"source", cmd.Source,
	)

	if !b.beginCommand() {
		b.logger.Debug("bridge stopping, command dropped", "command_id", cmd.ID)
		return nil
	}
	defer b.wg.Done()

	b.publishAck(deviceID, cmd, b.execute(deviceID, cmd))
	return nil
}

// beginCommand registers an in-flight command, or reports false once Stop
// has begun.
func (b *Bridge) beginCommand() bool {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()
	if b.stopping {
		return false
	}
	b.wg.Add(1)
	return true
}

func (b *Bridge) execute(deviceID string, cmd CommandMessage) error {
	if cmd.Field == "" {
		return fmt.Errorf("%w: field is required", device.ErrUnsupportedField)
	}
	d, ok := b.source.Device(deviceID)
	if !ok {
		return fmt.Errorf("%w: %q", device.ErrUnknownDevice, deviceID)
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()
	return accessory.For(d, b.source).Set(ctx, cmd.Field, cmd.Value)
}

func (b *Bridge) publishAck(deviceID string, cmd CommandMessage, err error) {
	ack := AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  deviceID,
		Field:     cmd.Field,
		Status:    AckAccepted,
	}
	if err != nil {
		ack.Status = AckFailed
		ack.Error = &AckError{Code: errorCode(err), Message: err.Error()}
		b.logger.Warn("command failed",
			"command_id", cmd.ID,
			"device_id", deviceID,
			"code", ack.Error.Code,
			"error", err,
		)
	}

	if pubErr := b.publish(mqtt.Topics{}.Ack(deviceID), ack, false); pubErr != nil {
		b.logger.Error("failed to publish ack", "command_id", cmd.ID, "error", pubErr)
	}
}

func (b *Bridge) publish(topic string, v any, retained bool) error {
	return b.mqtt.PublishJSON(topic, v, b.qos, retained)
}
