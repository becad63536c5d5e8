package bridge

import (
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
	"github.com/nerrad567/gray-logic-hubsync/internal/hub"
)

// CommandMessage is a field write received on hubsync/command/{id}.
type CommandMessage struct {
	// ID correlates the command with its ack. Generated when empty.
	ID string `json:"id,omitempty"`

	Field string `json:"field"`
	Value any    `json:"value"`

	// Source names the sender, for logs only.
	Source string `json:"source,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

// Ack statuses.
const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
)

// AckMessage answers a command on hubsync/ack/{id}.
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Field     string    `json:"field,omitempty"`
	Status    AckStatus `json:"status"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError describes a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for failed commands.
const (
	ErrCodeInvalidCommand   = "INVALID_COMMAND"
	ErrCodeUnknownDevice    = "UNKNOWN_DEVICE"
	ErrCodeUnsupportedField = "UNSUPPORTED_FIELD"
	ErrCodeInvalidValue     = "INVALID_VALUE"
	ErrCodeInvalidTarget    = "INVALID_TARGET"
	ErrCodeHubError         = "HUB_ERROR"
)

// errorCode classifies a command error for the ack.
func errorCode(err error) string {
	switch {
	case errors.Is(err, device.ErrUnknownDevice):
		return ErrCodeUnknownDevice
	case errors.Is(err, device.ErrUnsupportedField), errors.Is(err, device.ErrUnsupportedIntent):
		return ErrCodeUnsupportedField
	case errors.Is(err, device.ErrInvalidTarget):
		return ErrCodeInvalidTarget
	case errors.Is(err, device.ErrInvalidValue):
		return ErrCodeInvalidValue
	case errors.Is(err, hub.ErrCommand):
		return ErrCodeHubError
	}
	return ErrCodeInvalidCommand
}

// StateMessage is a device's canonical state, published retained on
// hubsync/state/{id}.
type StateMessage struct {
	DeviceID    string         `json:"device_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Kind        string         `json:"kind"`
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name"`
	RoomName    string         `json:"room_name,omitempty"`
	Writable    []string       `json:"writable,omitempty"`
	State       map[string]any `json:"state"`
}

// HealthStatus is the service status in health reports.
type HealthStatus string

// Health statuses.
const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthStarting  HealthStatus = "starting"
	HealthStopping  HealthStatus = "stopping"
)

// HealthMessage is published retained on hubsync/system/health.
type HealthMessage struct {
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Devices       int          `json:"devices"`
	Generation    uint64       `json:"generation"`
	LastRefresh   *time.Time   `json:"last_refresh,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}
