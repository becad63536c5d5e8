// Package api implements the HTTP REST API and WebSocket server for hubsync.
//
// This package provides:
//   - REST endpoints listing synchronised devices and their canonical state
//   - Field-level writes that become controller commands
//   - Recorded state history and raw per-id controller reads
//   - WebSocket hub pushing "device.snapshot" and "device.state" events
//   - Prometheus exposition on /metrics
//
// # Architecture
//
// The server sits between user interfaces and the synchronizer. Reads are
// served from the current snapshot and never touch the controller. Writes go
// through the same accessory layer the MQTT bridge uses, so a field means the
// same thing on every surface.
//
// The Server is itself a synchronizer listener: register it with AddListener
// and connected WebSocket clients receive every state change.
//
// # WebSocket Protocol
//
// Clients send JSON frames:
//
//	{"type":"subscribe","id":"1","payload":{"channels":["device.state"],"device_ids":["30"]}}
//
// The reply is a "response" frame, followed by one "device.snapshot" event
// holding every matching device. Later "device.state" events arrive only when
// a device's canonical state changes. Omit device_ids to follow every device.
//
// # Graceful Degradation
//
// History, raw reads and the MQTT health entry are optional. Endpoints whose
// backing component is missing answer 503.
package api
