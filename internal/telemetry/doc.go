// Package telemetry samples translated device state into a time-series store.
//
// A Recorder is registered as a synchronizer listener. Every successful
// refresh pass hands it each device, and it queues one "device_state" point
// per device carrying the numeric parts of the canonical state:
//
//	rec := telemetry.NewRecorder(influxClient)
//	sync.AddListener(rec)
//
// Booleans are written as 0/1 so they graph alongside levels. Devices with
// nothing numeric to report (scenes, locks, security panels) produce no point.
package telemetry
