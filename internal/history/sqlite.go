package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// timestampLayout is fixed-width so text ordering matches time ordering.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// ErrMissingDeviceID is returned when an entry or query has no device id.
var ErrMissingDeviceID = errors.New("history: device id is required")

// SQLiteRepository implements Repository on the device_state_history table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Record inserts the device's current canonical state.
func (r *SQLiteRepository) Record(ctx context.Context, d device.Device, source string) error {
	if d.ID == "" {
		return ErrMissingDeviceID
	}
	if source == "" {
		source = SourceRefresh
	}

	stateJSON, err := json.Marshal(d.State)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO device_state_history (device_id, device_type, state, source, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		d.ID,
		d.Type,
		string(stateJSON),
		source,
		r.now().UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	return nil
}

// History returns up to limit entries for a device, newest first.
// limit defaults to 50 and is capped at 200.
func (r *SQLiteRepository) History(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if deviceID == "" {
		return nil, ErrMissingDeviceID
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, device_type, state, source, created_at
		 FROM device_state_history
		 WHERE device_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var stateJSON, createdAt string
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.DeviceType, &stateJSON, &e.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &e.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the retention window and returns how many
// were removed.
func (r *SQLiteRepository) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive")
	}

	cutoff := r.now().UTC().Add(-retention).Format(timestampLayout)
	result, err := r.db.ExecContext(ctx, "DELETE FROM device_state_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
