package device

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/nerrad567/gray-logic-hubsync/internal/hub"
)

// Temperature unit tags reported by thermostats.
const (
	UnitsDeciFahrenheit = "DeciFahrenheit"
	UnitsDeciCelsius    = "DeciCelsius"
)

const (
	// DefaultTargetDeciF is the target used when a thermostat reports no set points (72 °F).
	DefaultTargetDeciF = 720

	// WireLevelMax is the controller's full-scale level and position.
	WireLevelMax = 65535
)

// ToCelsius converts deci-Fahrenheit to Celsius rounded to 0.1.
func ToCelsius(deciF int) float64 {
	return round10((float64(deciF)/10 - 32) * 5 / 9)
}

// ToDeciFahrenheit converts Celsius to the nearest deci-Fahrenheit.
func ToDeciFahrenheit(celsius float64) int {
	return int(math.Round((celsius*9/5 + 32) * 10))
}

// FromWireTemperature converts a wire temperature in the given units to Celsius.
// Empty or unrecognised units are read as deci-Fahrenheit.
func FromWireTemperature(value int, units string) float64 {
	if strings.EqualFold(units, UnitsDeciCelsius) {
		return round10(float64(value) / 10)
	}
	return ToCelsius(value)
}

// ToWireTemperature converts Celsius to a wire temperature in the given units.
func ToWireTemperature(celsius float64, units string) int {
	if strings.EqualFold(units, UnitsDeciCelsius) {
		return int(math.Round(celsius * 10))
	}
	return ToDeciFahrenheit(celsius)
}

func round10(v float64) float64 {
	return math.Round(v*10) / 10
}

// TargetSetPoint picks the wire temperature presented as a thermostat's single
// target: the cool set point, else the heat set point, else DefaultTargetDeciF
// (converted to the thermostat's units).
func TargetSetPoint(c *Climate) int {
	if c != nil {
		if v, ok := c.SetPoint(hub.SetPointCool); ok {
			return v
		}
		if v, ok := c.SetPoint(hub.SetPointHeat); ok {
			return v
		}
		if strings.EqualFold(c.Units, UnitsDeciCelsius) {
			return ToWireTemperature(ToCelsius(DefaultTargetDeciF), UnitsDeciCelsius)
		}
	}
	return DefaultTargetDeciF
}

var wireModes = map[string]Mode{
	"off":  ModeOff,
	"heat": ModeHeat,
	"cool": ModeCool,
	"auto": ModeAuto,
}

// ModeFromWire maps a wire system mode (OFF, HEAT, COOL, AUTO, any case) to a
// Mode. Unknown values return ModeOff and false.
func ModeFromWire(wire string) (Mode, bool) {
	m, ok := wireModes[strings.ToLower(strings.TrimSpace(wire))]
	if !ok {
		return ModeOff, false
	}
	return m, true
}

// ModeToWire maps a Mode to its wire form.
func ModeToWire(m Mode) (string, error) {
	switch m {
	case ModeOff:
		return hub.ModeOff, nil
	case ModeHeat:
		return hub.ModeHeat, nil
	case ModeCool:
		return hub.ModeCool, nil
	case ModeAuto:
		return hub.ModeAuto, nil
	}
	return "", fmt.Errorf("%w: thermostat mode %q", ErrInvalidValue, m)
}

// ParseMode reads a canonical mode name, ignoring case.
func ParseMode(s string) (Mode, error) {
	m, ok := ModeFromWire(s)
	if !ok {
		return "", fmt.Errorf("%w: thermostat mode %q", ErrInvalidValue, s)
	}
	return m, nil
}

// FanModeToWire upper-cases a fan mode and checks it against the modes the
// thermostat reports. An empty available list accepts any non-empty mode.
func FanModeToWire(fanMode string, available []string) (string, error) {
	wire := strings.ToUpper(strings.TrimSpace(fanMode))
	if wire == "" {
		return "", fmt.Errorf("%w: empty fan mode", ErrInvalidValue)
	}
	if len(available) > 0 && !slices.ContainsFunc(available, func(a string) bool {
		return strings.EqualFold(a, wire)
	}) {
		return "", fmt.Errorf("%w: fan mode %q not in %v", ErrInvalidValue, fanMode, available)
	}
	return wire, nil
}

// FanModeFromWire presents a wire fan mode as "Auto", "On", etc.
func FanModeFromWire(wire string) string {
	wire = strings.TrimSpace(wire)
	if wire == "" {
		return ""
	}
	return strings.ToUpper(wire[:1]) + strings.ToLower(wire[1:])
}

// LockStateFromWire maps locked, unlocked and jammed to Secured, Unsecured and
// Jammed. Anything else is LockUnknown.
func LockStateFromWire(wire string) LockState {
	switch strings.ToLower(strings.TrimSpace(wire)) {
	case hub.LockLocked:
		return LockSecured
	case hub.LockUnlocked:
		return LockUnsecured
	case hub.LockJammed:
		return LockJammed
	}
	return LockUnknown
}

// ParseLockTarget reads a lock command target. Only Secured and Unsecured
// (or lock/unlock, locked/unlocked) can be commanded.
func ParseLockTarget(s string) (LockState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "secured", "lock", "locked":
		return LockSecured, nil
	case "unsecured", "unlock", "unlocked":
		return LockUnsecured, nil
	}
	return "", fmt.Errorf("%w: lock target %q", ErrInvalidTarget, s)
}

var wireSecurityStates = map[string]SecurityState{
	"disarmed":   SecurityDisarmed,
	"armstay":    SecurityStayArmed,
	"armaway":    SecurityAwayArmed,
	"arminstant": SecurityNightArmed,
	"alarm":      SecurityAlarmTriggered,
	"fire":       SecurityAlarmTriggered,
	"entrydelay": SecurityAwayArmed,
	"exitdelay":  SecurityAwayArmed,
}

// SecurityStateFromWire maps a wire panel state to a SecurityState. Entry and
// exit delays read as AwayArmed. Unknown values return SecurityDisarmed and false.
func SecurityStateFromWire(wire string) (SecurityState, bool) {
	s, ok := wireSecurityStates[strings.ToLower(strings.TrimSpace(wire))]
	if !ok {
		return SecurityDisarmed, false
	}
	return s, true
}

// CommandableSecurityStates lists the targets a panel can be moved to.
func CommandableSecurityStates() []SecurityState {
	return []SecurityState{SecurityDisarmed, SecurityStayArmed, SecurityAwayArmed, SecurityNightArmed}
}

// SecurityStateToWire maps a commandable target to its wire state.
// AlarmTriggered and unknown states return ErrInvalidTarget.
func SecurityStateToWire(target SecurityState) (string, error) {
	switch target {
	case SecurityDisarmed:
		return hub.SecurityDisarmed, nil
	case SecurityStayArmed:
		return hub.SecurityArmStay, nil
	case SecurityAwayArmed:
		return hub.SecurityArmAway, nil
	case SecurityNightArmed:
		return hub.SecurityArmInstant, nil
	}
	return "", fmt.Errorf("%w: security state %q cannot be commanded", ErrInvalidTarget, target)
}

// ParseSecurityState reads a canonical security state name, ignoring case.
func ParseSecurityState(s string) (SecurityState, error) {
	for _, st := range append(CommandableSecurityStates(), SecurityAlarmTriggered) {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: security state %q", ErrInvalidValue, s)
}

// PercentToWire converts 0-100 percent to the controller's 0-65535 scale.
func PercentToWire(percent int) (int, error) {
	if percent < 0 || percent > 100 {
		return 0, fmt.Errorf("%w: %d is outside 0-100", ErrInvalidValue, percent)
	}
	return int(math.Round(float64(percent) * WireLevelMax / 100)), nil
}

// WireToPercent converts a 0-65535 value to percent, clamping out-of-range input.
func WireToPercent(wire int) int {
	wire = max(0, min(wire, WireLevelMax))
	return int(math.Round(float64(wire) * 100 / WireLevelMax))
}
