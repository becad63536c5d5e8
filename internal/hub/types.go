package hub

import "time"

// Collection names as they appear in controller URLs and response envelopes.
const (
	CollectionRooms           = "rooms"
	CollectionScenes          = "scenes"
	CollectionDevices         = "devices"
	CollectionShades          = "shades"
	CollectionThermostats     = "thermostats"
	CollectionDoorLocks       = "doorlocks"
	CollectionSecurityDevices = "securitydevices"
)

// Collections lists every collection the fetcher reads.
var Collections = []string{
	CollectionRooms,
	CollectionScenes,
	CollectionDevices,
	CollectionShades,
	CollectionThermostats,
	CollectionDoorLocks,
	CollectionSecurityDevices,
}

// Room is a named location.
type Room struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// RawDevice is an entry from the generic devices collection.
type RawDevice struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	RoomID  ID     `json:"roomId"`
	Type    string `json:"type"`
	SubType string `json:"subType"`
	Level   int    `json:"level"`
	Status  bool   `json:"status"`
}

// Scene is an entry from the scenes collection.
type Scene struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	RoomID ID     `json:"roomId"`
	Type   string `json:"type"`
	Status bool   `json:"status"`
}

// Shade extends a device with its position (0-65535).
type Shade struct {
	ID       ID  `json:"id"`
	Position int `json:"position"`
}

// SetPoint is one thermostat set point in deci-units.
type SetPoint struct {
	Type        string `json:"type"`
	Temperature int    `json:"temperature"`
}

// Set point kinds.
const (
	SetPointCool = "Cool"
	SetPointHeat = "Heat"
	SetPointAuto = "Auto"
)

// Thermostat extends a device with climate state in deci-units.
// CurrentTemperature is nil when the controller did not report one.
type Thermostat struct {
	ID                   ID         `json:"id"`
	CurrentTemperature   *int       `json:"currentTemperature,omitempty"`
	CurrentMode          string     `json:"currentMode"`
	CurrentFanMode       string     `json:"currentFanMode"`
	SetPoints            []SetPoint `json:"currentSetPoint"`
	TemperatureUnits     string     `json:"temperatureUnits"`
	SchedulerState       string     `json:"schedulerState"`
	AvailableFanModes    []string   `json:"availableFanModes"`
	AvailableSystemModes []string   `json:"availableSystemModes"`
	ConnectionStatus     string     `json:"connectionStatus"`
}

// SetPoint returns the set point of the given kind.
func (t *Thermostat) SetPoint(kind string) (SetPoint, bool) {
	for _, sp := range t.SetPoints {
		if sp.Type == kind {
			return sp, true
		}
	}
	return SetPoint{}, false
}

// DoorLock extends a device with lock state. It may also stand alone.
type DoorLock struct {
	ID               ID     `json:"id"`
	Name             string `json:"name"`
	RoomID           ID     `json:"roomId"`
	Status           string `json:"status"`
	Type             string `json:"type"`
	ConnectionStatus string `json:"connectionStatus"`
}

// SecurityDevice extends a device with security panel state.
type SecurityDevice struct {
	ID               ID       `json:"id"`
	Name             string   `json:"name"`
	RoomID           ID       `json:"roomId"`
	CurrentState     string   `json:"currentState"`
	AvailableStates  []string `json:"availableStates"`
	ConnectionStatus string   `json:"connectionStatus"`
}

// Optional is the result of a collection the controller may not expose.
// Supported is false when the read failed; Err then holds the cause and
// Items is empty.
type Optional[T any] struct {
	Items     []T
	Supported bool
	Err       error
}

// CollectionSnapshot is the result of one discovery pass.
type CollectionSnapshot struct {
	Rooms           []Room
	Scenes          []Scene
	Devices         []RawDevice
	Shades          []Shade
	Thermostats     []Thermostat
	DoorLocks       Optional[DoorLock]
	SecurityDevices Optional[SecurityDevice]
	FetchedAt       time.Time
}
