package history

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-hubsync/migrations"
)

// setupTestDB opens a temporary database with the real schema applied.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db.DB
}

// steppingClock returns a clock advancing one second per call.
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func level(v int) *int { return &v }

func TestRecordAndHistory(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	repo.now = steppingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	d := device.Device{ID: "100", Type: device.TypeDimmer, State: device.State{Brightness: level(40)}}
	if err := repo.Record(ctx, d, SourceBaseline); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	d.State.Brightness = level(80)
	if err := repo.Record(ctx, d, ""); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.History(ctx, "100", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	newest := entries[0]
	if newest.State.Brightness == nil || *newest.State.Brightness != 80 {
		t.Errorf("newest brightness = %v, want 80", newest.State.Brightness)
	}
	if newest.Source != SourceRefresh {
		t.Errorf("newest source = %q, want default %q", newest.Source, SourceRefresh)
	}
	if newest.DeviceType != device.TypeDimmer {
		t.Errorf("DeviceType = %q, want Dimmer", newest.DeviceType)
	}
	if !newest.CreatedAt.After(entries[1].CreatedAt) {
		t.Errorf("entries not newest first: %v then %v", newest.CreatedAt, entries[1].CreatedAt)
	}
	if entries[1].Source != SourceBaseline {
		t.Errorf("oldest source = %q, want %q", entries[1].Source, SourceBaseline)
	}
}

func TestHistory_SubSecondOrdering(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i, offset := range []time.Duration{0, 500 * time.Millisecond, time.Second} {
		at := base.Add(offset)
		repo.now = func() time.Time { return at }
		d := device.Device{ID: "1", Type: device.TypeShade, State: device.State{Position: level(i)}}
		if err := repo.Record(ctx, d, SourceRefresh); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := repo.History(ctx, "1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	for i, want := range []int{2, 1, 0} {
		if got := *entries[i].State.Position; got != want {
			t.Errorf("entries[%d] position = %d, want %d", i, got, want)
		}
	}
}

func TestHistory_LimitAndIsolation(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	repo.now = steppingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := range 5 {
		if err := repo.Record(ctx, device.Device{ID: "a", State: device.State{Position: level(i)}}, SourceRefresh); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if err := repo.Record(ctx, device.Device{ID: "b"}, SourceRefresh); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.History(ctx, "a", 3)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("len(entries) = %d, want 3", len(entries))
	}

	empty, err := repo.History(ctx, "missing", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("len(empty) = %d, want 0", len(empty))
	}
}

func TestRecord_RequiresDeviceID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	if err := repo.Record(context.Background(), device.Device{}, SourceRefresh); !errors.Is(err, ErrMissingDeviceID) {
		t.Errorf("Record() error = %v, want ErrMissingDeviceID", err)
	}
	if _, err := repo.History(context.Background(), "", 10); !errors.Is(err, ErrMissingDeviceID) {
		t.Errorf("History() error = %v, want ErrMissingDeviceID", err)
	}
}

func TestPrune(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, time.Hour} {
		at := now.Add(-age)
		repo.now = func() time.Time { return at }
		if err := repo.Record(ctx, device.Device{ID: "1"}, SourceRefresh); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	repo.now = func() time.Time { return now }
	deleted, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	if _, err := repo.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) expected error")
	}
}
