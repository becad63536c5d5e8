package synchronizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hubsync/internal/hub"
)

// call records one write issued through mockClient.
type call struct {
	Method string
	ID     hub.ID
	Args   []any
}

// mockClient implements Client for tests.
type mockClient struct {
	mu sync.Mutex

	snapshot   *hub.CollectionSnapshot
	fetchErr   error
	sessionErr error
	commandErr error

	// block, when set, holds FetchAll until it is closed or ctx ends.
	block chan struct{}

	fetches     int
	invalidated int
	calls       []call
}

func (m *mockClient) EnsureSession(context.Context) (hub.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionErr != nil {
		return hub.Session{}, m.sessionErr
	}
	return hub.Session{Key: "key", IssuedAt: time.Now(), TTL: hub.SessionTTL}, nil
}

func (m *mockClient) FetchAll(ctx context.Context) (*hub.CollectionSnapshot, error) {
	m.mu.Lock()
	m.fetches++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", hub.ErrDiscovery, ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.snapshot, nil
}

func (m *mockClient) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated++
}

func (m *mockClient) record(method string, id hub.ID, args ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{Method: method, ID: id, Args: args})
	if m.commandErr != nil {
		return fmt.Errorf("%w: %s %s: %w", hub.ErrCommand, method, id, m.commandErr)
	}
	return nil
}

func (m *mockClient) SetLightLevel(_ context.Context, id hub.ID, level int) error {
	return m.record("SetLightLevel", id, level)
}

func (m *mockClient) SetShadePosition(_ context.Context, id hub.ID, position int) error {
	return m.record("SetShadePosition", id, position)
}

func (m *mockClient) RecallScene(_ context.Context, id hub.ID) error {
	return m.record("RecallScene", id)
}

func (m *mockClient) SetThermostatSetPoint(_ context.Context, id hub.ID, kind string, temperature int) error {
	return m.record("SetThermostatSetPoint", id, kind, temperature)
}

func (m *mockClient) SetThermostatMode(_ context.Context, id hub.ID, mode string) error {
	return m.record("SetThermostatMode", id, mode)
}

func (m *mockClient) SetThermostatFanMode(_ context.Context, id hub.ID, mode string) error {
	return m.record("SetThermostatFanMode", id, mode)
}

func (m *mockClient) LockDoor(_ context.Context, id hub.ID) error {
	return m.record("LockDoor", id)
}

func (m *mockClient) UnlockDoor(_ context.Context, id hub.ID) error {
	return m.record("UnlockDoor", id)
}

func (m *mockClient) SetSecurityState(_ context.Context, id hub.ID, state string) error {
	return m.record("SetSecurityState", id, state)
}

func (m *mockClient) setSnapshot(s *hub.CollectionSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = s
}

func (m *mockClient) setFetchErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
}

func (m *mockClient) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

func (m *mockClient) recorded() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]call(nil), m.calls...)
}

func intPtr(v int) *int { return &v }

// testCollections is a small house: one of every supported device kind.
func testCollections() *hub.CollectionSnapshot {
	return &hub.CollectionSnapshot{
		Rooms: []hub.Room{
			{ID: "1", Name: "Kitchen"},
			{ID: "2", Name: "Hall"},
		},
		Devices: []hub.RawDevice{
			{ID: "10", Name: "Pendant", RoomID: "1", Type: "Dimmer", Level: 32768, Status: true},
			{ID: "11", Name: "Extractor", RoomID: "1", Type: "Switch"},
			{ID: "20", Name: "Blind", RoomID: "1", Type: "Shade"},
			{ID: "30", Name: "Stat", RoomID: "2", Type: "Thermostat"},
			{ID: "40", Name: "Front Door", RoomID: "2", Type: "DoorLock"},
			{ID: "50", Name: "Alarm", RoomID: "2", Type: "SecuritySystem"},
		},
		Scenes: []hub.Scene{
			{ID: "60", Name: "Evening", RoomID: "1", Type: "Lighting"},
		},
		Shades: []hub.Shade{{ID: "20", Position: 65535}},
		Thermostats: []hub.Thermostat{{
			ID:                 "30",
			CurrentTemperature: intPtr(700),
			CurrentMode:        "HEAT",
			CurrentFanMode:     "AUTO",
			SetPoints: []hub.SetPoint{
				{Type: hub.SetPointHeat, Temperature: 680},
				{Type: hub.SetPointCool, Temperature: 760},
			},
			TemperatureUnits:     "DeciFahrenheit",
			AvailableFanModes:    []string{"AUTO", "ON"},
			AvailableSystemModes: []string{"OFF", "HEAT", "COOL", "AUTO"},
		}},
		DoorLocks: hub.Optional[hub.DoorLock]{
			Supported: true,
			Items:     []hub.DoorLock{{ID: "40", Name: "Front Door", RoomID: "2", Status: "locked"}},
		},
		SecurityDevices: hub.Optional[hub.SecurityDevice]{
			Supported: true,
			Items: []hub.SecurityDevice{{
				ID:              "50",
				Name:            "Alarm",
				RoomID:          "2",
				CurrentState:    "Disarmed",
				AvailableStates: []string{"Disarmed", "ArmStay", "ArmAway", "ArmInstant"},
			}},
		},
	}
}

var allTypes = map[string]bool{
	"Dimmer":         true,
	"Switch":         true,
	"Shade":          true,
	"Thermostat":     true,
	"DoorLock":       true,
	"SecuritySystem": true,
	"Scene":          true,
}
