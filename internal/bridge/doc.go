// Package bridge presents the synchronised devices on MQTT.
//
// Every successful discovery pass pushes each device through UpdateState;
// the bridge publishes the device's accessory fields retained on
// hubsync/state/{id} whenever they differ from what it last published.
// Writes arrive on hubsync/command/{id}:
//
//	{"id": "optional-correlation-id", "field": "target_temperature", "value": 21.5}
//
// and are answered on hubsync/ack/{id} with "accepted" or "failed" plus an
// error code. A health report is published retained on
// hubsync/system/health at a fixed interval.
package bridge
