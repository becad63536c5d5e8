package device

import (
	"strings"

	"github.com/nerrad567/gray-logic-hubsync/internal/hub"
)

// AggregateOptions controls which devices Aggregate returns.
type AggregateOptions struct {
	// AllowedTypes is the set of resolved types to keep. Types outside it are dropped.
	AllowedTypes map[string]bool

	// Dedupe collapses devices that share an id across the devices, scenes
	// and standalone lock steps, keeping the record with more extensions
	// (then the earlier one). Off by default: the controller's own listing
	// keeps both.
	Dedupe bool
}

var (
	securityAliases = map[string]bool{
		"security":        true,
		"securitysystem":  true,
		"security system": true,
		"securitydevice":  true,
	}
	doorLockAliases = map[string]bool{
		"doorlock":  true,
		"door lock": true,
		"lock":      true,
	}
)

// ResolveType picks a device's effective type: the sub type when set,
// otherwise the type. Thermostat, security panel and door lock spellings are
// normalised to TypeThermostat, TypeSecuritySystem and TypeDoorLock.
func ResolveType(rawType, subType string) string {
	resolved := strings.TrimSpace(subType)
	if resolved == "" {
		resolved = strings.TrimSpace(rawType)
	}
	if resolved == "" {
		return TypeUnknown
	}

	lower := strings.ToLower(resolved)
	switch {
	case lower == "thermostat":
		return TypeThermostat
	case securityAliases[lower]:
		return TypeSecuritySystem
	case doorLockAliases[lower]:
		return TypeDoorLock
	}
	return resolved
}

// Aggregate joins a collection snapshot into canonical devices.
//
// The result lists devices-collection entries first, then scenes, then door
// locks that no lock-typed device claimed, each in controller order. Within
// the scene and lock steps a repeated id keeps its first position and its
// last record. State
// is left empty; see Translator.Fill.
func Aggregate(snap *hub.CollectionSnapshot, opts AggregateOptions) []Device {
	if snap == nil {
		return []Device{}
	}

	rooms := make(map[hub.ID]string, len(snap.Rooms))
	for _, r := range snap.Rooms {
		rooms[r.ID] = r.Name
	}

	// Later entries overwrite earlier ones with the same id.
	shades := indexByID(snap.Shades, func(s hub.Shade) hub.ID { return s.ID })
	thermostats := indexByID(snap.Thermostats, func(t hub.Thermostat) hub.ID { return t.ID })
	locks := indexByID(snap.DoorLocks.Items, func(l hub.DoorLock) hub.ID { return l.ID })
	panels := indexByID(snap.SecurityDevices.Items, func(s hub.SecurityDevice) hub.ID { return s.ID })

	claimedLocks := make(map[hub.ID]bool)
	out := make([]Device, 0, len(snap.Devices)+len(snap.Scenes)+len(snap.DoorLocks.Items))

	for _, raw := range snap.Devices {
		resolved := ResolveType(raw.Type, raw.SubType)
		roomName := rooms[raw.RoomID]

		d := Device{
			ID:          string(raw.ID),
			Type:        resolved,
			SubType:     raw.SubType,
			Name:        raw.Name,
			DisplayName: displayName(roomName, raw.Name),
			RoomID:      string(raw.RoomID),
			RoomName:    roomName,
			Level:       raw.Level,
			Status:      raw.Status,
		}

		switch resolved {
		case TypeShade:
			if s, ok := shades[raw.ID]; ok {
				d.Position = s.Position
			}
		case TypeThermostat:
			if t, ok := thermostats[raw.ID]; ok {
				d.Climate = climateFrom(t)
			}
		case TypeDoorLock:
			if l, ok := locks[raw.ID]; ok {
				d.Lock = lockFrom(l)
				claimedLocks[raw.ID] = true
			}
		case TypeSecuritySystem:
			if p, ok := panels[raw.ID]; ok {
				d.Security = securityFrom(p)
			}
		}

		if opts.AllowedTypes[resolved] {
			out = append(out, d)
		}
	}

	if opts.AllowedTypes[TypeScene] {
		for _, sc := range lastByID(snap.Scenes, func(sc hub.Scene) hub.ID { return sc.ID }) {
			roomName := rooms[sc.RoomID]
			out = append(out, Device{
				ID:          string(sc.ID),
				Type:        TypeScene,
				SubType:     sc.Type,
				Name:        sc.Name,
				DisplayName: displayName(roomName, sc.Name),
				RoomID:      string(sc.RoomID),
				RoomName:    roomName,
				Status:      sc.Status,
			})
		}
	}

	if opts.AllowedTypes[TypeDoorLock] {
		for _, l := range lastByID(snap.DoorLocks.Items, func(l hub.DoorLock) hub.ID { return l.ID }) {
			if claimedLocks[l.ID] {
				continue
			}
			roomName := rooms[l.RoomID]
			out = append(out, Device{
				ID:          string(l.ID),
				Type:        TypeDoorLock,
				SubType:     l.Type,
				Name:        l.Name,
				DisplayName: displayName(roomName, l.Name),
				RoomID:      string(l.RoomID),
				RoomName:    roomName,
				Status:      strings.EqualFold(l.Status, hub.LockLocked),
				Lock:        lockFrom(l),
			})
		}
	}

	if opts.Dedupe {
		out = dedupe(out)
	}
	return out
}

// dedupe keeps one device per id: the one with more extensions attached,
// or the earlier one on a tie. Order of first appearance is kept.
func dedupe(devices []Device) []Device {
	best := make(map[string]int, len(devices))
	order := make([]string, 0, len(devices))

	for i := range devices {
		id := devices[i].ID
		j, seen := best[id]
		if !seen {
			best[id] = i
			order = append(order, id)
			continue
		}
		if extensionCount(&devices[i]) > extensionCount(&devices[j]) {
			best[id] = i
		}
	}

	out := make([]Device, 0, len(order))
	for _, id := range order {
		out = append(out, devices[best[id]])
	}
	return out
}

func extensionCount(d *Device) int {
	n := 0
	if d.Climate != nil {
		n++
	}
	if d.Lock != nil {
		n++
	}
	if d.Security != nil {
		n++
	}
	return n
}

func displayName(room, name string) string {
	return room + " " + name
}

func indexByID[T any](items []T, id func(T) hub.ID) map[hub.ID]T {
	m := make(map[hub.ID]T, len(items))
	for _, item := range items {
		m[id(item)] = item
	}
	return m
}

// lastByID keeps one item per id, in order of first appearance, holding the
// last record seen for that id.
func lastByID[T any](items []T, id func(T) hub.ID) []T {
	pos := make(map[hub.ID]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if i, ok := pos[id(item)]; ok {
			out[i] = item
			continue
		}
		pos[id(item)] = len(out)
		out = append(out, item)
	}
	return out
}

func climateFrom(t hub.Thermostat) *Climate {
	c := &Climate{
		Mode:                 t.CurrentMode,
		FanMode:              t.CurrentFanMode,
		SetPoints:            cloneSlice(t.SetPoints),
		Units:                t.TemperatureUnits,
		SchedulerState:       t.SchedulerState,
		AvailableFanModes:    cloneSlice(t.AvailableFanModes),
		AvailableSystemModes: cloneSlice(t.AvailableSystemModes),
		ConnectionStatus:     t.ConnectionStatus,
	}
	c.CurrentTemperature = clonePtr(t.CurrentTemperature)
	return c
}

func lockFrom(l hub.DoorLock) *Lock {
	return &Lock{
		Status:           l.Status,
		Kind:             l.Type,
		ConnectionStatus: l.ConnectionStatus,
	}
}

func securityFrom(s hub.SecurityDevice) *Security {
	return &Security{
		State:            s.CurrentState,
		AvailableStates:  cloneSlice(s.AvailableStates),
		ConnectionStatus: s.ConnectionStatus,
	}
}
