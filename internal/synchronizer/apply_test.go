package synchronizer

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nerrad567/gray-logic-hubsync/internal/accessory"
	"github.com/nerrad567/gray-logic-hubsync/internal/device"
	"github.com/nerrad567/gray-logic-hubsync/internal/hub"
)

func refreshedSynchronizer(t *testing.T, snap *hub.CollectionSnapshot) (*Synchronizer, *mockClient) {
	t.Helper()
	client := &mockClient{snapshot: snap}
	s := newTestSynchronizer(t, client)
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return s, client
}

func TestApply_TranslatesToWire(t *testing.T) {
	tests := []struct {
		name   string
		intent device.Intent
		want   call
	}{
		{
			name:   "heat set point in deci-F",
			intent: device.SetTemperature{ID: "30", Celsius: 20, Kind: hub.SetPointHeat},
			want:   call{Method: "SetThermostatSetPoint", ID: "30", Args: []any{hub.SetPointHeat, 680}},
		},
		{
			name:   "unqualified temperature follows heat mode",
			intent: device.SetTemperature{ID: "30", Celsius: 22},
			want:   call{Method: "SetThermostatSetPoint", ID: "30", Args: []any{hub.SetPointHeat, 716}},
		},
		{
			name:   "kind is case-insensitive",
			intent: device.SetTemperature{ID: "30", Celsius: 25, Kind: "cool"},
			want:   call{Method: "SetThermostatSetPoint", ID: "30", Args: []any{hub.SetPointCool, 770}},
		},
		{
			name:   "mode",
			intent: device.SetMode{ID: "30", Mode: device.ModeCool},
			want:   call{Method: "SetThermostatMode", ID: "30", Args: []any{"COOL"}},
		},
		{
			name:   "fan mode upper-cased",
			intent: device.SetFanMode{ID: "30", FanMode: "On"},
			want:   call{Method: "SetThermostatFanMode", ID: "30", Args: []any{"ON"}},
		},
		{
			name:   "lock",
			intent: device.SetLockState{ID: "40", Target: device.LockSecured},
			want:   call{Method: "LockDoor", ID: "40"},
		},
		{
			name:   "unlock",
			intent: device.SetLockState{ID: "40", Target: device.LockUnsecured},
			want:   call{Method: "UnlockDoor", ID: "40"},
		},
		{
			name:   "night arm",
			intent: device.SetSecurityState{ID: "50", Target: device.SecurityNightArmed},
			want:   call{Method: "SetSecurityState", ID: "50", Args: []any{"ArmInstant"}},
		},
		{
			name:   "shade position",
			intent: device.SetShadePosition{ID: "20", Position: 50},
			want:   call{Method: "SetShadePosition", ID: "20", Args: []any{32768}},
		},
		{
			name:   "dimmer level",
			intent: device.SetLightLevel{ID: "10", Level: 100},
			want:   call{Method: "SetLightLevel", ID: "10", Args: []any{65535}},
		},
		{
			name:   "switch on",
			intent: device.SetLightLevel{ID: "11", Level: 30},
			want:   call{Method: "SetLightLevel", ID: "11", Args: []any{65535}},
		},
		{
			name:   "switch off",
			intent: device.SetLightLevel{ID: "11", Level: 0},
			want:   call{Method: "SetLightLevel", ID: "11", Args: []any{0}},
		},
		{
			name:   "scene",
			intent: device.RecallScene{ID: "60"},
			want:   call{Method: "RecallScene", ID: "60"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, client := refreshedSynchronizer(t, testCollections())

			if err := s.Apply(context.Background(), tt.intent); err != nil {
				t.Fatalf("Apply() error = %v", err)
			}

			calls := client.recorded()
			if len(calls) != 1 {
				t.Fatalf("calls = %+v, want exactly one", calls)
			}
			if !reflect.DeepEqual(calls[0], tt.want) {
				t.Errorf("call = %+v, want %+v", calls[0], tt.want)
			}
			if client.fetchCount() != 1 {
				t.Error("Apply() should not trigger a refresh")
			}
		})
	}
}

func TestApply_DeciCelsiusThermostat(t *testing.T) {
	snap := testCollections()
	snap.Thermostats[0].TemperatureUnits = device.UnitsDeciCelsius
	s, client := refreshedSynchronizer(t, snap)

	if err := s.Apply(context.Background(), device.SetTemperature{ID: "30", Celsius: 21.5, Kind: hub.SetPointCool}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := call{Method: "SetThermostatSetPoint", ID: "30", Args: []any{hub.SetPointCool, 215}}
	if got := client.recorded()[0]; !reflect.DeepEqual(got, want) {
		t.Errorf("call = %+v, want %+v", got, want)
	}
}

func TestApply_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		intent  device.Intent
		wantErr error
	}{
		{"unknown device", device.RecallScene{ID: "999"}, device.ErrUnknownDevice},
		{"alarm is not commandable", device.SetSecurityState{ID: "50", Target: device.SecurityAlarmTriggered}, device.ErrInvalidTarget},
		{"jammed is not commandable", device.SetLockState{ID: "40", Target: device.LockJammed}, device.ErrInvalidTarget},
		{"temperature on a lock", device.SetTemperature{ID: "40", Celsius: 20}, device.ErrUnsupportedIntent},
		{"scene on a dimmer", device.RecallScene{ID: "10"}, device.ErrUnsupportedIntent},
		{"light level on a shade", device.SetLightLevel{ID: "20", Level: 50}, device.ErrUnsupportedIntent},
		{"level above 100", device.SetLightLevel{ID: "10", Level: 101}, device.ErrInvalidValue},
		{"negative switch level", device.SetLightLevel{ID: "11", Level: -1}, device.ErrInvalidValue},
		{"negative shade position", device.SetShadePosition{ID: "20", Position: -5}, device.ErrInvalidValue},
		{"NaN temperature", device.SetTemperature{ID: "30", Celsius: math.NaN()}, device.ErrInvalidValue},
		{"unknown set point kind", device.SetTemperature{ID: "30", Celsius: 20, Kind: "Eco"}, device.ErrInvalidValue},
		{"unknown mode", device.SetMode{ID: "30", Mode: "Dry"}, device.ErrInvalidValue},
		{"fan mode not offered", device.SetFanMode{ID: "30", FanMode: "Circulate"}, device.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, client := refreshedSynchronizer(t, testCollections())

			err := s.Apply(context.Background(), tt.intent)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Apply() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, hub.ErrCommand) {
				t.Errorf("Apply() error = %v, want it to wrap ErrCommand", err)
			}
			if calls := client.recorded(); len(calls) != 0 {
				t.Errorf("calls = %+v, want none", calls)
			}
		})
	}
}

func TestApply_OtherLightTypesSwitchOnOff(t *testing.T) {
	snap := testCollections()
	snap.Devices = append(snap.Devices,
		hub.RawDevice{ID: "7", Name: "Porch", RoomID: "1", Type: "Light"},
		hub.RawDevice{ID: "8", Name: "Ceiling", RoomID: "2", Type: "Fan"},
	)
	client := &mockClient{snapshot: snap}
	s, err := New(Options{
		Client:       client,
		AllowedTypes: map[string]bool{"Light": true, "Fan": true},
		Registerer:   prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	porch, ok := s.Device("7")
	if !ok {
		t.Fatal("device 7 missing from snapshot")
	}
	acc := accessory.For(porch, s)
	if !acc.Writable(accessory.FieldOn) {
		t.Fatal("on should be writable for a Light")
	}
	if err := acc.Set(context.Background(), accessory.FieldOn, true); err != nil {
		t.Fatalf("Set(on, true) error = %v", err)
	}
	if err := s.Apply(context.Background(), device.SetLightLevel{ID: "8", Level: 0}); err != nil {
		t.Fatalf("Apply(off) error = %v", err)
	}

	want := []call{
		{Method: "SetLightLevel", ID: "7", Args: []any{device.WireLevelMax}},
		{Method: "SetLightLevel", ID: "8", Args: []any{0}},
	}
	if got := client.recorded(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %+v, want %+v", got, want)
	}
}

func TestApply_SystemModeNotOffered(t *testing.T) {
	snap := testCollections()
	snap.Thermostats[0].AvailableSystemModes = []string{"OFF", "HEAT"}
	s, client := refreshedSynchronizer(t, snap)

	err := s.Apply(context.Background(), device.SetMode{ID: "30", Mode: device.ModeCool})
	if !errors.Is(err, device.ErrInvalidValue) {
		t.Fatalf("Apply() error = %v, want ErrInvalidValue", err)
	}
	if len(client.recorded()) != 0 {
		t.Error("no write should be issued")
	}
}

func TestApply_ControllerFailure(t *testing.T) {
	s, client := refreshedSynchronizer(t, testCollections())
	client.mu.Lock()
	client.commandErr = errors.New("status 500")
	client.mu.Unlock()

	before := s.Snapshot()
	err := s.Apply(context.Background(), device.SetLockState{ID: "40", Target: device.LockUnsecured})
	if !errors.Is(err, hub.ErrCommand) {
		t.Fatalf("Apply() error = %v, want ErrCommand", err)
	}

	after := s.Snapshot()
	if after.Generation != before.Generation {
		t.Error("a failed command must not touch the snapshot")
	}
	if lock, _ := s.Device("40"); lock.State.LockState != device.LockSecured {
		t.Errorf("LockState = %q, want Secured until the next pass", lock.State.LockState)
	}

	failures := s.metrics.commandsTotal.WithLabelValues("set_lock_state", resultFailure)
	if got := testutil.ToFloat64(failures); got != 1 {
		t.Errorf("command failures = %v, want 1", got)
	}
}

func TestApply_NilIntent(t *testing.T) {
	s, _ := refreshedSynchronizer(t, testCollections())
	if err := s.Apply(context.Background(), nil); !errors.Is(err, hub.ErrCommand) {
		t.Errorf("Apply(nil) error = %v, want ErrCommand", err)
	}
}
