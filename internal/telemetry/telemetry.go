package telemetry

import (
	"time"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
)

// Measurement is the measurement name every point is written under.
const Measurement = "device_state"

// Writer queues points for asynchronous delivery.
// *influxdb.Client satisfies this interface.
type Writer interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// Recorder turns device states into time-series points.
type Recorder struct {
	writer Writer
	now    func() time.Time
}

// NewRecorder creates a Recorder writing through w.
func NewRecorder(w Writer) *Recorder {
	return &Recorder{writer: w, now: time.Now}
}

// UpdateState queues a point for d when it has numeric state.
func (r *Recorder) UpdateState(d device.Device) {
	fields := Fields(d.State)
	if len(fields) == 0 {
		return
	}
	r.writer.WritePoint(Measurement, Tags(d), fields, r.now())
}

// Tags returns the series tags for d.
func Tags(d device.Device) map[string]string {
	tags := map[string]string{
		"device_id": d.ID,
		"type":      d.Type,
	}
	if d.RoomName != "" {
		tags["room"] = d.RoomName
	}
	return tags
}

// Fields extracts the numeric values of s.
func Fields(s device.State) map[string]any {
	fields := make(map[string]any)
	if s.CurrentTemperature != nil {
		fields["current_temperature"] = *s.CurrentTemperature
	}
	if s.TargetTemperature != nil {
		fields["target_temperature"] = *s.TargetTemperature
	}
	if s.Brightness != nil {
		fields["brightness"] = float64(*s.Brightness)
	}
	if s.Position != nil {
		fields["position"] = float64(*s.Position)
	}
	if s.On != nil {
		fields["on"] = boolValue(*s.On)
	}
	return fields
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
