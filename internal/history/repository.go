package history

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
)

// Sources recorded with each entry.
const (
	// SourceRefresh marks a state observed by a refresh pass.
	SourceRefresh = "refresh"

	// SourceBaseline marks the first state seen for a device after start-up.
	SourceBaseline = "baseline"
)

// Entry is one recorded device state.
type Entry struct {
	ID         int64        `json:"id"`
	DeviceID   string       `json:"device_id"`
	DeviceType string       `json:"device_type"`
	State      device.State `json:"state"`
	Source     string       `json:"source"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Repository stores and reads device state history.
//
// Implementations must be safe for concurrent use and store UTC timestamps.
type Repository interface {
	// Record stores the canonical state of d.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - d: Device whose State is persisted
	//   - source: Origin of the entry (SourceRefresh, SourceBaseline)
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	Record(ctx context.Context, d device.Device, source string) error

	// History returns the most recent entries for a device, newest first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - deviceID: Device identifier
	//   - limit: Maximum entries (implementations clamp out-of-range values)
	//
	// Returns:
	//   - []Entry: Entries ordered newest first (may be empty)
	//   - error: nil on success, otherwise the underlying query error
	History(ctx context.Context, deviceID string, limit int) ([]Entry, error)
}
