package history

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
)

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

const defaultWriteTimeout = 5 * time.Second

// Recorder persists device states pushed by the synchronizer, skipping
// states identical to the last one recorded for the same device.
type Recorder struct {
	repo    Repository
	timeout time.Duration
	logger  Logger

	mu   sync.Mutex
	last map[string]device.State
}

// NewRecorder creates a Recorder writing to repo.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{
		repo:    repo,
		timeout: defaultWriteTimeout,
		logger:  noopLogger{},
		last:    make(map[string]device.State),
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// UpdateState records d when its canonical state changed.
func (r *Recorder) UpdateState(d device.Device) {
	r.mu.Lock()
	prev, seen := r.last[d.ID]
	if seen && prev.Equal(d.State) {
		r.mu.Unlock()
		return
	}
	r.last[d.ID] = d.State.Clone()
	r.mu.Unlock()

	source := SourceRefresh
	if !seen {
		source = SourceBaseline
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.repo.Record(ctx, d, source); err != nil {
		r.logger.Warn("recording device state failed", "device_id", d.ID, "error", err)
		// Forget the state so the next refresh retries.
		r.mu.Lock()
		delete(r.last, d.ID)
		r.mu.Unlock()
	}
}
