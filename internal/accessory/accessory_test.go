package accessory

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
)

// mockApplier records intents for tests.
type mockApplier struct {
	mu      sync.Mutex
	intents []device.Intent
	err     error
}

func (m *mockApplier) Apply(_ context.Context, intent device.Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents = append(m.intents, intent)
	return m.err
}

func (m *mockApplier) last() device.Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.intents) == 0 {
		return nil
	}
	return m.intents[len(m.intents)-1]
}

func boolPtr(v bool) *bool        { return &v }
func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func testDevices() map[string]device.Device {
	return map[string]device.Device{
		"dimmer": {ID: "10", Type: device.TypeDimmer, State: device.State{On: boolPtr(true), Brightness: intPtr(40)}},
		"switch": {ID: "11", Type: device.TypeSwitch, State: device.State{On: boolPtr(false)}},
		"shade":  {ID: "20", Type: device.TypeShade, State: device.State{Position: intPtr(100)}},
		"thermostat": {ID: "30", Type: device.TypeThermostat, State: device.State{
			CurrentTemperature: floatPtr(21.1),
			TargetTemperature:  floatPtr(24.4),
			Mode:               device.ModeHeat,
			FanMode:            "Auto",
		}},
		"lock":     {ID: "40", Type: device.TypeDoorLock, State: device.State{LockState: device.LockSecured}},
		"security": {ID: "50", Type: device.TypeSecuritySystem, State: device.State{SecurityState: device.SecurityDisarmed}},
		"scene":    {ID: "60", Type: device.TypeScene, State: device.State{Active: boolPtr(false)}},
		"unknown":  {ID: "70", Type: "Fan", State: device.State{On: boolPtr(true)}},
	}
}

func TestFor_Kinds(t *testing.T) {
	devices := testDevices()
	tests := []struct {
		device string
		kind   string
		fields []string
	}{
		{"dimmer", KindLight, []string{FieldOn, FieldBrightness}},
		{"switch", KindLight, []string{FieldOn}},
		{"unknown", KindLight, []string{FieldOn}},
		{"shade", KindShade, []string{FieldPosition}},
		{"thermostat", KindThermostat, []string{FieldCurrentTemperature, FieldTargetTemperature, FieldMode, FieldFanMode}},
		{"lock", KindDoorLock, []string{FieldLockState}},
		{"security", KindSecuritySystem, []string{FieldSecurityState}},
		{"scene", KindScene, []string{FieldActive}},
	}

	for _, tt := range tests {
		t.Run(tt.device, func(t *testing.T) {
			acc := For(devices[tt.device], nil)
			if acc.Kind() != tt.kind {
				t.Errorf("Kind() = %q, want %q", acc.Kind(), tt.kind)
			}
			if !reflect.DeepEqual(acc.Fields(), tt.fields) {
				t.Errorf("Fields() = %v, want %v", acc.Fields(), tt.fields)
			}
		})
	}
}

func TestGet(t *testing.T) {
	devices := testDevices()
	tests := []struct {
		device string
		field  string
		want   any
	}{
		{"dimmer", FieldOn, true},
		{"dimmer", FieldBrightness, 40},
		{"shade", FieldPosition, 100},
		{"thermostat", FieldCurrentTemperature, 21.1},
		{"thermostat", FieldTargetTemperature, 24.4},
		{"thermostat", FieldMode, "Heat"},
		{"thermostat", FieldFanMode, "Auto"},
		{"lock", FieldLockState, "Secured"},
		{"security", FieldSecurityState, "Disarmed"},
		{"scene", FieldActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.device+"/"+tt.field, func(t *testing.T) {
			got, err := For(devices[tt.device], nil).Get(tt.field)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Get() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestGet_UnsupportedField(t *testing.T) {
	devices := testDevices()
	if _, err := For(devices["switch"], nil).Get(FieldBrightness); !errors.Is(err, device.ErrUnsupportedField) {
		t.Errorf("switch brightness error = %v, want ErrUnsupportedField", err)
	}
	if _, err := For(devices["lock"], nil).Get(FieldPosition); !errors.Is(err, device.ErrUnsupportedField) {
		t.Errorf("lock position error = %v, want ErrUnsupportedField", err)
	}
}

func TestGet_AbsentValueIsNil(t *testing.T) {
	stat := device.Device{ID: "30", Type: device.TypeThermostat}
	got, err := For(stat, nil).Get(FieldCurrentTemperature)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %v, want nil", got)
	}
}

func TestSet_BuildsIntent(t *testing.T) {
	devices := testDevices()
	tests := []struct {
		name   string
		device string
		field  string
		value  any
		want   device.Intent
	}{
		{"dimmer on restores brightness", "dimmer", FieldOn, true, device.SetLightLevel{ID: "10", Level: 40}},
		{"dimmer off", "dimmer", FieldOn, "off", device.SetLightLevel{ID: "10", Level: 0}},
		{"dimmer brightness from JSON", "dimmer", FieldBrightness, float64(75), device.SetLightLevel{ID: "10", Level: 75}},
		{"switch on", "switch", FieldOn, "ON", device.SetLightLevel{ID: "11", Level: 100}},
		{"shade from payload text", "shade", FieldPosition, "25", device.SetShadePosition{ID: "20", Position: 25}},
		{"target temperature", "thermostat", FieldTargetTemperature, json.Number("21.5"), device.SetTemperature{ID: "30", Celsius: 21.5}},
		{"mode", "thermostat", FieldMode, "cool", device.SetMode{ID: "30", Mode: device.ModeCool}},
		{"fan mode", "thermostat", FieldFanMode, "On", device.SetFanMode{ID: "30", FanMode: "On"}},
		{"lock by name", "lock", FieldLockState, "Unsecured", device.SetLockState{ID: "40", Target: device.LockUnsecured}},
		{"lock by bool", "lock", FieldLockState, true, device.SetLockState{ID: "40", Target: device.LockSecured}},
		{"arm away", "security", FieldSecurityState, "AwayArmed", device.SetSecurityState{ID: "50", Target: device.SecurityAwayArmed}},
		{"recall scene", "scene", FieldActive, true, device.RecallScene{ID: "60"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applier := &mockApplier{}
			if err := For(devices[tt.device], applier).Set(context.Background(), tt.field, tt.value); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if got := applier.last(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("intent = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSet_Rejections(t *testing.T) {
	devices := testDevices()
	tests := []struct {
		name    string
		device  string
		field   string
		value   any
		wantErr error
	}{
		{"read-only temperature", "thermostat", FieldCurrentTemperature, 20.0, device.ErrUnsupportedField},
		{"switch brightness", "switch", FieldBrightness, 50.0, device.ErrUnsupportedField},
		{"fractional brightness", "dimmer", FieldBrightness, 50.5, device.ErrInvalidValue},
		{"non-numeric position", "shade", FieldPosition, "half", device.ErrInvalidValue},
		{"bad bool", "dimmer", FieldOn, "maybe", device.ErrInvalidValue},
		{"unknown mode", "thermostat", FieldMode, "Dry", device.ErrInvalidValue},
		{"jammed target", "lock", FieldLockState, "Jammed", device.ErrInvalidTarget},
		{"unknown security state", "security", FieldSecurityState, "Panic", device.ErrInvalidValue},
		{"scene off", "scene", FieldActive, false, device.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applier := &mockApplier{}
			err := For(devices[tt.device], applier).Set(context.Background(), tt.field, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Set() error = %v, want %v", err, tt.wantErr)
			}
			if applier.last() != nil {
				t.Errorf("intent %#v applied despite rejection", applier.last())
			}
		})
	}
}

func TestSet_PropagatesApplyError(t *testing.T) {
	applier := &mockApplier{err: device.ErrInvalidTarget}
	err := For(testDevices()["security"], applier).Set(context.Background(), FieldSecurityState, "AlarmTriggered")
	if !errors.Is(err, device.ErrInvalidTarget) {
		t.Errorf("Set() error = %v, want ErrInvalidTarget", err)
	}
}

func TestSet_ReadOnlyAccessory(t *testing.T) {
	err := For(testDevices()["scene"], nil).Set(context.Background(), FieldActive, true)
	if !errors.Is(err, device.ErrUnsupportedField) {
		t.Errorf("Set() error = %v, want ErrUnsupportedField", err)
	}
}

func TestValues(t *testing.T) {
	got := Values(For(testDevices()["dimmer"], nil))
	want := map[string]any{FieldOn: true, FieldBrightness: 40}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
}

func TestFor_CopiesDevice(t *testing.T) {
	d := testDevices()["dimmer"]
	acc := For(d, nil)
	*d.State.Brightness = 90

	if got, _ := acc.Get(FieldBrightness); got != 40 {
		t.Errorf("Get() = %v, want 40 from the copy taken by For", got)
	}
}

func TestWritable(t *testing.T) {
	stat := For(testDevices()["thermostat"], nil)
	if stat.Writable(FieldCurrentTemperature) {
		t.Error("current_temperature should not be writable")
	}
	if !stat.Writable(FieldTargetTemperature) {
		t.Error("target_temperature should be writable")
	}
}
