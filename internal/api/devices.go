package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-hubsync/internal/accessory"
	"github.com/nerrad567/gray-logic-hubsync/internal/device"
)

// stateView is the field-level view of one device, shared by the state
// endpoint and WebSocket events.
type stateView struct {
	DeviceID string         `json:"device_id"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Kind     string         `json:"kind"`
	RoomName string         `json:"room_name"`
	Fields   []string       `json:"fields"`
	Writable []string       `json:"writable"`
	State    map[string]any `json:"state"`
}

func newStateView(d device.Device) stateView {
	acc := accessory.For(d, nil)
	view := stateView{
		DeviceID: d.ID,
		Name:     d.DisplayName,
		Type:     d.Type,
		Kind:     acc.Kind(),
		RoomName: d.RoomName,
		Fields:   acc.Fields(),
		Writable: []string{},
		State:    accessory.Values(acc),
	}
	for _, f := range view.Fields {
		if acc.Writable(f) {
			view.Writable = append(view.Writable, f)
		}
	}
	return view
}

// handleListDevices returns the devices of the current snapshot.
//
// Query parameters:
//   - type: filter by resolved device type (Dimmer, Thermostat, ...)
//   - room_id: filter by controller room id
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	typeFilter := r.URL.Query().Get("type")
	roomFilter := r.URL.Query().Get("room_id")

	all := s.syncer.Devices()
	devices := make([]device.Device, 0, len(all))
	for _, d := range all {
		if typeFilter != "" && !strings.EqualFold(d.Type, typeFilter) {
			continue
		}
		if roomFilter != "" && d.RoomID != roomFilter {
			continue
		}
		devices = append(devices, d)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices":    devices,
		"count":      len(devices),
		"generation": s.syncer.Health().Generation,
	})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.syncer.Device(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleGetDeviceState returns the field-level state of a device.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.syncer.Device(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, newStateView(dev))
}

// SetStateRequest is the body of PUT /devices/{id}/state.
type SetStateRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// handleSetDeviceState writes one field of a device through the controller.
//
// The write is synchronous: a 202 means the controller accepted the command.
// The snapshot is not touched; the new state arrives with the next refresh.
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, ok := s.syncer.Device(id)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}

	var req SetStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Field == "" {
		writeBadRequest(w, "field is required")
		return
	}

	commandID := uuid.NewString()
	if err := accessory.For(dev, s.syncer).Set(r.Context(), req.Field, req.Value); err != nil {
		s.logger.Warn("device command failed",
			"device_id", id,
			"field", req.Field,
			"command_id", commandID,
			"error", err,
		)
		writeCommandError(w, err)
		return
	}

	s.logger.Info("device command applied",
		"device_id", id,
		"field", req.Field,
		"value", req.Value,
		"command_id", commandID,
	)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"command_id": commandID,
		"status":     "accepted",
		"message":    "command applied, state will follow on the next refresh",
	})
}
