package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
	"github.com/nerrad567/gray-logic-hubsync/internal/hub"
)

// Apply translates a canonical intent to wire units and issues one write to
// the controller. The target device must be in the current snapshot. Apply
// does not refresh; the next pass picks up the new state.
//
// Errors wrap hub.ErrCommand together with the cause, so both
// errors.Is(err, hub.ErrCommand) and errors.Is(err, device.ErrInvalidTarget)
// (for example) hold.
func (s *Synchronizer) Apply(ctx context.Context, intent device.Intent) error {
	if intent == nil {
		return fmt.Errorf("%w: nil intent", hub.ErrCommand)
	}

	err := s.apply(ctx, intent)
	s.metrics.commandsTotal.WithLabelValues(intent.Command(), result(err)).Inc()

	if err != nil {
		if !errors.Is(err, hub.ErrCommand) {
			err = fmt.Errorf("%w: %s %s: %w", hub.ErrCommand, intent.Command(), intent.DeviceID(), err)
		}
		s.logger.Warn("command failed",
			"command", intent.Command(),
			"device_id", intent.DeviceID(),
			"error", err,
		)
		return err
	}

	s.logger.Info("command applied",
		"command", intent.Command(),
		"device_id", intent.DeviceID(),
	)
	return nil
}

func (s *Synchronizer) apply(ctx context.Context, intent device.Intent) error {
	d, ok := s.lookup(intent.DeviceID())
	if !ok {
		return fmt.Errorf("%w: %q", device.ErrUnknownDevice, intent.DeviceID())
	}
	id := hub.ID(d.ID)

	switch in := intent.(type) {
	case device.SetTemperature:
		if err := requireType(d, in, device.TypeThermostat); err != nil {
			return err
		}
		if math.IsNaN(in.Celsius) || math.IsInf(in.Celsius, 0) {
			return fmt.Errorf("%w: temperature %v", device.ErrInvalidValue, in.Celsius)
		}
		units := ""
		if d.Climate != nil {
			units = d.Climate.Units
		}
		kind, err := setPointKind(in.Kind, d)
		if err != nil {
			return err
		}
		return s.client.SetThermostatSetPoint(ctx, id, kind, device.ToWireTemperature(in.Celsius, units))

	case device.SetMode:
		if err := requireType(d, in, device.TypeThermostat); err != nil {
			return err
		}
		wire, err := device.ModeToWire(in.Mode)
		if err != nil {
			return err
		}
		if d.Climate != nil && !availableFold(d.Climate.AvailableSystemModes, wire) {
			return fmt.Errorf("%w: mode %q not in %v", device.ErrInvalidValue, in.Mode, d.Climate.AvailableSystemModes)
		}
		return s.client.SetThermostatMode(ctx, id, wire)

	case device.SetFanMode:
		if err := requireType(d, in, device.TypeThermostat); err != nil {
			return err
		}
		var available []string
		if d.Climate != nil {
			available = d.Climate.AvailableFanModes
		}
		wire, err := device.FanModeToWire(in.FanMode, available)
		if err != nil {
			return err
		}
		return s.client.SetThermostatFanMode(ctx, id, wire)

	case device.SetLockState:
		if err := requireType(d, in, device.TypeDoorLock); err != nil {
			return err
		}
		switch in.Target {
		case device.LockSecured:
			return s.client.LockDoor(ctx, id)
		case device.LockUnsecured:
			return s.client.UnlockDoor(ctx, id)
		}
		return fmt.Errorf("%w: lock state %q cannot be commanded", device.ErrInvalidTarget, in.Target)

	case device.SetSecurityState:
		if err := requireType(d, in, device.TypeSecuritySystem); err != nil {
			return err
		}
		wire, err := device.SecurityStateToWire(in.Target)
		if err != nil {
			return err
		}
		if d.Security != nil && !availableFold(d.Security.AvailableStates, wire) {
			return fmt.Errorf("%w: security state %q not offered by panel", device.ErrInvalidTarget, in.Target)
		}
		return s.client.SetSecurityState(ctx, id, wire)

	case device.SetShadePosition:
		if err := requireType(d, in, device.TypeShade); err != nil {
			return err
		}
		wire, err := device.PercentToWire(in.Position)
		if err != nil {
			return err
		}
		return s.client.SetShadePosition(ctx, id, wire)

	case device.SetLightLevel:
		if hasDedicatedKind(d.Type) {
			return requireType(d, in, device.TypeDimmer)
		}
		if d.Type == device.TypeDimmer {
			wire, err := device.PercentToWire(in.Level)
			if err != nil {
				return err
			}
			return s.client.SetLightLevel(ctx, id, wire)
		}
		// Switches and any other light-like type are on/off only.
		if in.Level < 0 || in.Level > 100 {
			return fmt.Errorf("%w: %d is outside 0-100", device.ErrInvalidValue, in.Level)
		}
		wire := 0
		if in.Level > 0 {
			wire = device.WireLevelMax
		}
		return s.client.SetLightLevel(ctx, id, wire)

	case device.RecallScene:
		if err := requireType(d, in, device.TypeScene); err != nil {
			return err
		}
		return s.client.RecallScene(ctx, id)
	}

	return fmt.Errorf("%w: %T", device.ErrUnsupportedIntent, intent)
}

func requireType(d *device.Device, intent device.Intent, want string) error {
	if d.Type != want {
		return fmt.Errorf("%w: %s on %s", device.ErrUnsupportedIntent, intent.Command(), d.Type)
	}
	return nil
}

// hasDedicatedKind reports whether typ is driven by an intent other than
// SetLightLevel. Every other allow-listed type is presented as a light.
func hasDedicatedKind(typ string) bool {
	switch typ {
	case device.TypeShade, device.TypeThermostat, device.TypeDoorLock,
		device.TypeSecuritySystem, device.TypeScene:
		return true
	}
	return false
}

// setPointKind returns the set point an unqualified temperature write moves:
// Heat while heating, Cool otherwise.
func setPointKind(kind string, d *device.Device) (string, error) {
	switch {
	case strings.EqualFold(kind, hub.SetPointCool):
		return hub.SetPointCool, nil
	case strings.EqualFold(kind, hub.SetPointHeat):
		return hub.SetPointHeat, nil
	case kind != "":
		return "", fmt.Errorf("%w: set point %q", device.ErrInvalidValue, kind)
	}
	if d.Climate != nil {
		if mode, _ := device.ModeFromWire(d.Climate.Mode); mode == device.ModeHeat {
			return hub.SetPointHeat, nil
		}
	}
	return hub.SetPointCool, nil
}

// availableFold reports whether wire is in available, ignoring case. An empty
// list means the controller did not report its options, so anything goes.
func availableFold(available []string, wire string) bool {
	if len(available) == 0 {
		return true
	}
	return slices.ContainsFunc(available, func(a string) bool {
		return strings.EqualFold(a, wire)
	})
}
