package accessory

import (
	"context"
	"fmt"
	"slices"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
)

// Accessory kinds.
const (
	KindLight          = "Light"
	KindShade          = "Shade"
	KindThermostat     = "Thermostat"
	KindDoorLock       = "DoorLock"
	KindSecuritySystem = "SecuritySystem"
	KindScene          = "Scene"
)

// Field names.
const (
	FieldOn                 = "on"
	FieldBrightness         = "brightness"
	FieldPosition           = "position"
	FieldCurrentTemperature = "current_temperature"
	FieldTargetTemperature  = "target_temperature"
	FieldMode               = "mode"
	FieldFanMode            = "fan_mode"
	FieldLockState          = "lock_state"
	FieldSecurityState      = "security_state"
	FieldActive             = "active"
)

// Applier executes a command intent. *synchronizer.Synchronizer satisfies it.
type Applier interface {
	Apply(ctx context.Context, intent device.Intent) error
}

// Accessory exposes one device as named fields.
type Accessory interface {
	// Kind is the accessory kind (KindLight, KindThermostat, ...).
	Kind() string

	// Fields lists the readable fields in a stable order.
	Fields() []string

	// Writable reports whether Set accepts field.
	Writable(field string) bool

	// Get reads a field from the device's canonical state. A field the
	// device supports but has no value for reads as nil.
	Get(field string) (any, error)

	// Set converts value and applies the matching intent.
	Set(ctx context.Context, field string, value any) error
}

// For returns the accessory for d. Dimmers, switches and any other
// allow-listed type without a dedicated kind are presented as lights.
func For(d device.Device, applier Applier) Accessory {
	b := base{dev: *d.DeepCopy(), applier: applier}
	switch d.Type {
	case device.TypeShade:
		return &shade{b}
	case device.TypeThermostat:
		return &thermostat{b}
	case device.TypeDoorLock:
		return &doorLock{b}
	case device.TypeSecuritySystem:
		return &securitySystem{b}
	case device.TypeScene:
		return &scene{b}
	}
	return &light{b}
}

// Values returns every readable field of a with its current value.
func Values(a Accessory) map[string]any {
	out := make(map[string]any, len(a.Fields()))
	for _, f := range a.Fields() {
		v, err := a.Get(f)
		if err != nil {
			continue
		}
		out[f] = v
	}
	return out
}

type base struct {
	dev     device.Device
	applier Applier
}

func (b *base) apply(ctx context.Context, intent device.Intent) error {
	if b.applier == nil {
		return fmt.Errorf("%w: accessory is read-only", device.ErrUnsupportedField)
	}
	return b.applier.Apply(ctx, intent)
}

func unsupported(kind, field string) error {
	return fmt.Errorf("%w: %s has no field %q", device.ErrUnsupportedField, kind, field)
}

func readOnly(kind, field string) error {
	return fmt.Errorf("%w: %s field %q is read-only", device.ErrUnsupportedField, kind, field)
}

// deref returns *p, or nil for a nil pointer so absent values encode as null.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// light covers dimmers and switches.
type light struct{ base }

func (a *light) Kind() string { return KindLight }

func (a *light) dimmable() bool { return a.dev.Type == device.TypeDimmer }

func (a *light) Fields() []string {
	if a.dimmable() {
		return []string{FieldOn, FieldBrightness}
	}
	return []string{FieldOn}
}

func (a *light) Writable(field string) bool { return slices.Contains(a.Fields(), field) }

func (a *light) Get(field string) (any, error) {
	switch {
	case field == FieldOn:
		return deref(a.dev.State.On), nil
	case field == FieldBrightness && a.dimmable():
		return deref(a.dev.State.Brightness), nil
	}
	return nil, unsupported(a.Kind(), field)
}

func (a *light) Set(ctx context.Context, field string, value any) error {
	switch {
	case field == FieldOn:
		on, err := toBool(value)
		if err != nil {
			return err
		}
		level := 0
		if on {
			level = 100
			// Turning a dimmer back on restores its last non-zero brightness.
			if b := a.dev.State.Brightness; a.dimmable() && b != nil && *b > 0 {
				level = *b
			}
		}
		return a.apply(ctx, device.SetLightLevel{ID: a.dev.ID, Level: level})

	case field == FieldBrightness && a.dimmable():
		level, err := toInt(value)
		if err != nil {
			return err
		}
		return a.apply(ctx, device.SetLightLevel{ID: a.dev.ID, Level: level})
	}
	return unsupported(a.Kind(), field)
}

type shade struct{ base }

func (a *shade) Kind() string               { return KindShade }
func (a *shade) Fields() []string           { return []string{FieldPosition} }
func (a *shade) Writable(field string) bool { return field == FieldPosition }

func (a *shade) Get(field string) (any, error) {
	if field != FieldPosition {
		return nil, unsupported(a.Kind(), field)
	}
	return deref(a.dev.State.Position), nil
}

func (a *shade) Set(ctx context.Context, field string, value any) error {
	if field != FieldPosition {
		return unsupported(a.Kind(), field)
	}
	pos, err := toInt(value)
	if err != nil {
		return err
	}
	return a.apply(ctx, device.SetShadePosition{ID: a.dev.ID, Position: pos})
}

type thermostat struct{ base }

func (a *thermostat) Kind() string { return KindThermostat }

func (a *thermostat) Fields() []string {
	return []string{FieldCurrentTemperature, FieldTargetTemperature, FieldMode, FieldFanMode}
}

func (a *thermostat) Writable(field string) bool {
	return field == FieldTargetTemperature || field == FieldMode || field == FieldFanMode
}

func (a *thermostat) Get(field string) (any, error) {
	s := a.dev.State
	switch field {
	case FieldCurrentTemperature:
		return deref(s.CurrentTemperature), nil
	case FieldTargetTemperature:
		return deref(s.TargetTemperature), nil
	case FieldMode:
		if s.Mode == "" {
			return nil, nil
		}
		return string(s.Mode), nil
	case FieldFanMode:
		if s.FanMode == "" {
			return nil, nil
		}
		return s.FanMode, nil
	}
	return nil, unsupported(a.Kind(), field)
}

func (a *thermostat) Set(ctx context.Context, field string, value any) error {
	switch field {
	case FieldTargetTemperature:
		c, err := toFloat(value)
		if err != nil {
			return err
		}
		return a.apply(ctx, device.SetTemperature{ID: a.dev.ID, Celsius: c})

	case FieldMode:
		s, err := toString(value)
		if err != nil {
			return err
		}
		mode, err := device.ParseMode(s)
		if err != nil {
			return err
		}
		return a.apply(ctx, device.SetMode{ID: a.dev.ID, Mode: mode})

	case FieldFanMode:
		s, err := toString(value)
		if err != nil {
			return err
		}
		return a.apply(ctx, device.SetFanMode{ID: a.dev.ID, FanMode: s})

	case FieldCurrentTemperature:
		return readOnly(a.Kind(), field)
	}
	return unsupported(a.Kind(), field)
}

type doorLock struct{ base }

func (a *doorLock) Kind() string               { return KindDoorLock }
func (a *doorLock) Fields() []string           { return []string{FieldLockState} }
func (a *doorLock) Writable(field string) bool { return field == FieldLockState }

func (a *doorLock) Get(field string) (any, error) {
	if field != FieldLockState {
		return nil, unsupported(a.Kind(), field)
	}
	return string(a.dev.State.LockState), nil
}

func (a *doorLock) Set(ctx context.Context, field string, value any) error {
	if field != FieldLockState {
		return unsupported(a.Kind(), field)
	}
	var target device.LockState
	switch v := value.(type) {
	case bool:
		// true locks, matching an "is secured" switch.
		target = device.LockUnsecured
		if v {
			target = device.LockSecured
		}
	default:
		s, err := toString(value)
		if err != nil {
			return err
		}
		if target, err = device.ParseLockTarget(s); err != nil {
			return err
		}
	}
	return a.apply(ctx, device.SetLockState{ID: a.dev.ID, Target: target})
}

type securitySystem struct{ base }

func (a *securitySystem) Kind() string               { return KindSecuritySystem }
func (a *securitySystem) Fields() []string           { return []string{FieldSecurityState} }
func (a *securitySystem) Writable(field string) bool { return field == FieldSecurityState }

func (a *securitySystem) Get(field string) (any, error) {
	if field != FieldSecurityState {
		return nil, unsupported(a.Kind(), field)
	}
	if a.dev.State.SecurityState == "" {
		return nil, nil
	}
	return string(a.dev.State.SecurityState), nil
}

func (a *securitySystem) Set(ctx context.Context, field string, value any) error {
	if field != FieldSecurityState {
		return unsupported(a.Kind(), field)
	}
	s, err := toString(value)
	if err != nil {
		return err
	}
	target, err := device.ParseSecurityState(s)
	if err != nil {
		return err
	}
	return a.apply(ctx, device.SetSecurityState{ID: a.dev.ID, Target: target})
}

type scene struct{ base }

func (a *scene) Kind() string               { return KindScene }
func (a *scene) Fields() []string           { return []string{FieldActive} }
func (a *scene) Writable(field string) bool { return field == FieldActive }

func (a *scene) Get(field string) (any, error) {
	if field != FieldActive {
		return nil, unsupported(a.Kind(), field)
	}
	return deref(a.dev.State.Active), nil
}

// Set recalls the scene. Scenes cannot be deactivated.
func (a *scene) Set(ctx context.Context, field string, value any) error {
	if field != FieldActive {
		return unsupported(a.Kind(), field)
	}
	on, err := toBool(value)
	if err != nil {
		return err
	}
	if !on {
		return fmt.Errorf("%w: scenes can only be recalled", device.ErrInvalidValue)
	}
	return a.apply(ctx, device.RecallScene{ID: a.dev.ID})
}
