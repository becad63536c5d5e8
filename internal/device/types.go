package device

import "github.com/nerrad567/gray-logic-hubsync/internal/hub"

// Resolved device types.
const (
	TypeDimmer         = "Dimmer"
	TypeSwitch         = "Switch"
	TypeShade          = "Shade"
	TypeThermostat     = "Thermostat"
	TypeDoorLock       = "DoorLock"
	TypeSecuritySystem = "SecuritySystem"
	TypeScene          = "Scene"
	TypeUnknown        = "Unknown"
)

// Device is the canonical view of one controller entity.
//
// Level and Position carry the controller's 0-65535 values. Climate, Lock and
// Security are nil when no matching extension record was reported; absence
// is never filled with placeholder values. State holds the translated,
// canonical view and is filled by Translator.
type Device struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	SubType     string `json:"sub_type,omitempty"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	RoomID      string `json:"room_id,omitempty"`
	RoomName    string `json:"room_name"`
	Level       int    `json:"level"`
	Status      bool   `json:"status"`
	Position    int    `json:"position"`

	Climate  *Climate  `json:"climate,omitempty"`
	Lock     *Lock     `json:"lock,omitempty"`
	Security *Security `json:"security,omitempty"`

	State State `json:"state"`
}

// Climate is the thermostat extension in wire units.
type Climate struct {
	CurrentTemperature   *int           `json:"current_temperature,omitempty"`
	Mode                 string         `json:"mode"`
	FanMode              string         `json:"fan_mode"`
	SetPoints            []hub.SetPoint `json:"set_points"`
	Units                string         `json:"units"`
	SchedulerState       string         `json:"scheduler_state,omitempty"`
	AvailableFanModes    []string       `json:"available_fan_modes,omitempty"`
	AvailableSystemModes []string       `json:"available_system_modes,omitempty"`
	ConnectionStatus     string         `json:"connection_status,omitempty"`
}

// SetPoint returns the set point of the given kind in wire units.
func (c *Climate) SetPoint(kind string) (int, bool) {
	for _, sp := range c.SetPoints {
		if sp.Type == kind {
			return sp.Temperature, true
		}
	}
	return 0, false
}

// Lock is the door lock extension in wire form.
type Lock struct {
	Status           string `json:"status"`
	Kind             string `json:"kind,omitempty"`
	ConnectionStatus string `json:"connection_status,omitempty"`
}

// Security is the security panel extension in wire form.
type Security struct {
	State            string   `json:"state"`
	AvailableStates  []string `json:"available_states,omitempty"`
	ConnectionStatus string   `json:"connection_status,omitempty"`
}

// Mode is a canonical thermostat system mode.
type Mode string

// Thermostat modes.
const (
	ModeOff  Mode = "Off"
	ModeHeat Mode = "Heat"
	ModeCool Mode = "Cool"
	ModeAuto Mode = "Auto"
)

// LockState is a canonical door lock state.
type LockState string

// Lock states.
const (
	LockSecured   LockState = "Secured"
	LockUnsecured LockState = "Unsecured"
	LockJammed    LockState = "Jammed"
	LockUnknown   LockState = "Unknown"
)

// SecurityState is a canonical security panel state.
type SecurityState string

// Security states. Only the first four can be commanded.
const (
	SecurityDisarmed       SecurityState = "Disarmed"
	SecurityStayArmed      SecurityState = "StayArmed"
	SecurityAwayArmed      SecurityState = "AwayArmed"
	SecurityNightArmed     SecurityState = "NightArmed"
	SecurityAlarmTriggered SecurityState = "AlarmTriggered"
)

// State is the canonical, translated state of a device. Pointer fields are
// nil when the device has no such capability or the controller did not
// report a value.
type State struct {
	On                 *bool         `json:"on,omitempty"`
	Brightness         *int          `json:"brightness,omitempty"`
	Position           *int          `json:"position,omitempty"`
	CurrentTemperature *float64      `json:"current_temperature,omitempty"`
	TargetTemperature  *float64      `json:"target_temperature,omitempty"`
	Mode               Mode          `json:"mode,omitempty"`
	FanMode            string        `json:"fan_mode,omitempty"`
	LockState          LockState     `json:"lock_state,omitempty"`
	SecurityState      SecurityState `json:"security_state,omitempty"`
	Active             *bool         `json:"active,omitempty"`
}

// Equal reports whether two states carry the same values.
func (s State) Equal(o State) bool {
	return eqPtr(s.On, o.On) &&
		eqPtr(s.Brightness, o.Brightness) &&
		eqPtr(s.Position, o.Position) &&
		eqPtr(s.CurrentTemperature, o.CurrentTemperature) &&
		eqPtr(s.TargetTemperature, o.TargetTemperature) &&
		s.Mode == o.Mode &&
		s.FanMode == o.FanMode &&
		s.LockState == o.LockState &&
		s.SecurityState == o.SecurityState &&
		eqPtr(s.Active, o.Active)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Clone returns a State whose pointers do not alias s.
func (s State) Clone() State {
	cpy := s
	cpy.On = clonePtr(s.On)
	cpy.Brightness = clonePtr(s.Brightness)
	cpy.Position = clonePtr(s.Position)
	cpy.CurrentTemperature = clonePtr(s.CurrentTemperature)
	cpy.TargetTemperature = clonePtr(s.TargetTemperature)
	cpy.Active = clonePtr(s.Active)
	return cpy
}

// DeepCopy creates a complete independent copy of the Device.
// Slices and pointers are cloned so modifications to the copy do not
// affect snapshots shared with other readers.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d

	if d.Climate != nil {
		c := *d.Climate
		c.CurrentTemperature = clonePtr(d.Climate.CurrentTemperature)
		c.SetPoints = cloneSlice(d.Climate.SetPoints)
		c.AvailableFanModes = cloneSlice(d.Climate.AvailableFanModes)
		c.AvailableSystemModes = cloneSlice(d.Climate.AvailableSystemModes)
		cpy.Climate = &c
	}
	if d.Lock != nil {
		l := *d.Lock
		cpy.Lock = &l
	}
	if d.Security != nil {
		s := *d.Security
		s.AvailableStates = cloneSlice(d.Security.AvailableStates)
		cpy.Security = &s
	}
	cpy.State = d.State.Clone()

	return &cpy
}

// CopyDevices deep-copies a device list.
func CopyDevices(devices []Device) []Device {
	if devices == nil {
		return nil
	}
	out := make([]Device, len(devices))
	for i := range devices {
		out[i] = *devices[i].DeepCopy()
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
