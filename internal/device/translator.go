package device

// Logger defines the logging interface used by the Translator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Translator fills canonical State from wire fields. Values it does not
// recognise are logged as warnings and replaced by a documented default;
// translation never fails.
type Translator struct {
	logger Logger
}

// NewTranslator creates a Translator. A nil logger discards warnings.
func NewTranslator(logger Logger) *Translator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Translator{logger: logger}
}

// Fill sets d.State from the device's wire fields.
func (t *Translator) Fill(d *Device) {
	d.State = t.State(d)
}

// FillAll fills State for every device in place.
func (t *Translator) FillAll(devices []Device) {
	for i := range devices {
		t.Fill(&devices[i])
	}
}

// State computes the canonical state of d.
func (t *Translator) State(d *Device) State {
	var s State

	switch d.Type {
	case TypeDimmer:
		s.On = ptr(d.Status)
		s.Brightness = ptr(WireToPercent(d.Level))

	case TypeShade:
		s.Position = ptr(WireToPercent(d.Position))

	case TypeThermostat:
		if d.Climate == nil {
			return s
		}
		t.climateState(d, &s)

	case TypeDoorLock:
		if d.Lock == nil {
			s.LockState = LockUnknown
			return s
		}
		s.LockState = LockStateFromWire(d.Lock.Status)
		if s.LockState == LockUnknown {
			t.logger.Warn("unrecognised lock status", "device_id", d.ID, "status", d.Lock.Status)
		}

	case TypeSecuritySystem:
		if d.Security == nil {
			return s
		}
		state, ok := SecurityStateFromWire(d.Security.State)
		if !ok {
			t.logger.Warn("unrecognised security state, presenting as disarmed",
				"device_id", d.ID,
				"state", d.Security.State,
			)
		}
		s.SecurityState = state

	case TypeScene:
		s.Active = ptr(d.Status)

	default:
		// Switches and any other allow-listed type expose on/off only.
		s.On = ptr(d.Status)
	}

	return s
}

func (t *Translator) climateState(d *Device, s *State) {
	c := d.Climate
	units := c.Units
	if units != "" && units != UnitsDeciFahrenheit && units != UnitsDeciCelsius {
		t.logger.Warn("unrecognised temperature units, assuming deci-Fahrenheit",
			"device_id", d.ID,
			"units", units,
		)
	}

	if c.CurrentTemperature != nil {
		s.CurrentTemperature = ptr(FromWireTemperature(*c.CurrentTemperature, units))
	}
	s.TargetTemperature = ptr(FromWireTemperature(TargetSetPoint(c), units))

	mode, ok := ModeFromWire(c.Mode)
	if !ok {
		t.logger.Warn("unrecognised thermostat mode, presenting as off",
			"device_id", d.ID,
			"mode", c.Mode,
		)
	}
	s.Mode = mode
	s.FanMode = FanModeFromWire(c.FanMode)
}

func ptr[T any](v T) *T {
	return &v
}
