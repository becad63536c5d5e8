package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrInvalidTarget) {
//	    // reject the command
//	}
var (
	// ErrUnknownDevice is returned when a device id is not in the current snapshot.
	ErrUnknownDevice = errors.New("device: unknown device")

	// ErrInvalidTarget is returned for a target state that cannot be commanded,
	// such as AlarmTriggered on a security panel.
	ErrInvalidTarget = errors.New("device: invalid target")

	// ErrUnsupportedField is returned when a field is not part of a device's capabilities.
	ErrUnsupportedField = errors.New("device: unsupported field")

	// ErrInvalidValue is returned when a value is out of range or of the wrong type.
	ErrInvalidValue = errors.New("device: invalid value")

	// ErrUnsupportedIntent is returned when an intent does not apply to the device type.
	ErrUnsupportedIntent = errors.New("device: intent not supported by device type")
)
