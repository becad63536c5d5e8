package device

import (
	"testing"

	"github.com/nerrad567/gray-logic-hubsync/internal/hub"
)

func TestDevice_DeepCopy(t *testing.T) {
	on := true
	orig := &Device{
		ID:   "1",
		Type: TypeThermostat,
		Climate: &Climate{
			CurrentTemperature: intPtr(700),
			SetPoints:          []hub.SetPoint{{Type: "Cool", Temperature: 700}},
			AvailableFanModes:  []string{"AUTO"},
		},
		Security: &Security{AvailableStates: []string{"Disarmed"}},
		State:    State{On: &on},
	}

	cpy := orig.DeepCopy()
	*cpy.Climate.CurrentTemperature = 1
	cpy.Climate.SetPoints[0].Temperature = 1
	cpy.Climate.AvailableFanModes[0] = "ON"
	cpy.Security.AvailableStates[0] = "ArmAway"
	*cpy.State.On = false

	if *orig.Climate.CurrentTemperature != 700 {
		t.Error("CurrentTemperature aliased")
	}
	if orig.Climate.SetPoints[0].Temperature != 700 {
		t.Error("SetPoints aliased")
	}
	if orig.Climate.AvailableFanModes[0] != "AUTO" {
		t.Error("AvailableFanModes aliased")
	}
	if orig.Security.AvailableStates[0] != "Disarmed" {
		t.Error("AvailableStates aliased")
	}
	if !*orig.State.On {
		t.Error("State.On aliased")
	}

	var nilDevice *Device
	if nilDevice.DeepCopy() != nil {
		t.Error("DeepCopy(nil) should be nil")
	}
}

func TestState_Equal(t *testing.T) {
	a, b := 50, 50
	c := 60
	s1 := State{Brightness: &a, Mode: ModeHeat}
	s2 := State{Brightness: &b, Mode: ModeHeat}
	s3 := State{Brightness: &c, Mode: ModeHeat}

	if !s1.Equal(s2) {
		t.Error("equal values behind different pointers should be Equal")
	}
	if s1.Equal(s3) {
		t.Error("different brightness should not be Equal")
	}
	if s1.Equal(State{Mode: ModeHeat}) {
		t.Error("nil and non-nil brightness should not be Equal")
	}
}

func TestIntent_Commands(t *testing.T) {
	intents := []Intent{
		SetTemperature{ID: "1"},
		SetMode{ID: "1"},
		SetFanMode{ID: "1"},
		SetLockState{ID: "1"},
		SetSecurityState{ID: "1"},
		SetShadePosition{ID: "1"},
		SetLightLevel{ID: "1"},
		RecallScene{ID: "1"},
	}
	seen := make(map[string]bool)
	for _, in := range intents {
		if in.DeviceID() != "1" {
			t.Errorf("%T DeviceID() = %q", in, in.DeviceID())
		}
		if seen[in.Command()] {
			t.Errorf("duplicate command name %q", in.Command())
		}
		seen[in.Command()] = true
	}
}
