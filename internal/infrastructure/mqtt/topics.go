package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the base for every hubsync topic.
const TopicPrefix = "hubsync"

// Topics provides builders for hubsync MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.State("30") // "hubsync/state/30"
type Topics struct{}

// State returns the retained canonical state topic for a device.
//
// Example: hubsync/state/30
func (Topics) State(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// Command returns the topic on which field writes for a device are accepted.
//
// Example: hubsync/command/30
func (Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceID)
}

// Ack returns the topic for command acknowledgements.
//
// Example: hubsync/ack/30
func (Topics) Ack(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, deviceID)
}

// SystemStatus returns the online/offline status topic (also the LWT topic).
//
// Example: hubsync/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// SystemHealth returns the periodic health report topic.
//
// Example: hubsync/system/health
func (Topics) SystemHealth() string {
	return TopicPrefix + "/system/health"
}

// AllStates returns a pattern matching every device state topic.
//
// Pattern: hubsync/state/+
func (Topics) AllStates() string {
	return TopicPrefix + "/state/+"
}

// AllCommands returns a pattern matching every device command topic.
//
// Pattern: hubsync/command/+
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+"
}

// DeviceID extracts the device id from a state, command or ack topic.
func (Topics) DeviceID(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicPrefix || parts[2] == "" {
		return "", false
	}
	switch parts[1] {
	case "state", "command", "ack":
		return parts[2], true
	}
	return "", false
}
