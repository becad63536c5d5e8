package device

// Intent is a write request in canonical units. The concrete types below are
// the only implementations.
type Intent interface {
	// DeviceID is the id of the target device.
	DeviceID() string

	// Command names the intent for logs and metrics.
	Command() string

	intent()
}

// SetTemperature moves a thermostat set point, in Celsius. Kind selects the
// set point (hub.SetPointCool or hub.SetPointHeat); when empty it follows the
// thermostat's current mode.
type SetTemperature struct {
	ID      string
	Celsius float64
	Kind    string
}

// SetMode changes a thermostat's system mode.
type SetMode struct {
	ID   string
	Mode Mode
}

// SetFanMode changes a thermostat's fan mode (e.g. "Auto", "On").
type SetFanMode struct {
	ID      string
	FanMode string
}

// SetLockState locks (LockSecured) or unlocks (LockUnsecured) a door.
type SetLockState struct {
	ID     string
	Target LockState
}

// SetSecurityState moves a security panel to a commandable state.
type SetSecurityState struct {
	ID     string
	Target SecurityState
}

// SetShadePosition moves a shade, in percent open.
type SetShadePosition struct {
	ID       string
	Position int
}

// SetLightLevel sets a light, in percent. Switches treat any level above zero as on.
type SetLightLevel struct {
	ID    string
	Level int
}

// RecallScene activates a scene.
type RecallScene struct {
	ID string
}

func (i SetTemperature) DeviceID() string   { return i.ID }
func (i SetMode) DeviceID() string          { return i.ID }
func (i SetFanMode) DeviceID() string       { return i.ID }
func (i SetLockState) DeviceID() string     { return i.ID }
func (i SetSecurityState) DeviceID() string { return i.ID }
func (i SetShadePosition) DeviceID() string { return i.ID }
func (i SetLightLevel) DeviceID() string    { return i.ID }
func (i RecallScene) DeviceID() string      { return i.ID }

func (SetTemperature) Command() string   { return "set_temperature" }
func (SetMode) Command() string          { return "set_mode" }
func (SetFanMode) Command() string       { return "set_fan_mode" }
func (SetLockState) Command() string     { return "set_lock_state" }
func (SetSecurityState) Command() string { return "set_security_state" }
func (SetShadePosition) Command() string { return "set_shade_position" }
func (SetLightLevel) Command() string    { return "set_light_level" }
func (RecallScene) Command() string      { return "recall_scene" }

func (SetTemperature) intent()   {}
func (SetMode) intent()          {}
func (SetFanMode) intent()       {}
func (SetLockState) intent()     {}
func (SetSecurityState) intent() {}
func (SetShadePosition) intent() {}
func (SetLightLevel) intent()    {}
func (RecallScene) intent()      {}
