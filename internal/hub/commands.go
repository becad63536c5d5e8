package hub

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Thermostat system modes and fan modes in wire form.
const (
	ModeOff  = "OFF"
	ModeHeat = "HEAT"
	ModeCool = "COOL"
	ModeAuto = "AUTO"

	FanModeAuto = "AUTO"
	FanModeOn   = "ON"
)

// Security states in wire form.
const (
	SecurityDisarmed   = "Disarmed"
	SecurityArmStay    = "ArmStay"
	SecurityArmAway    = "ArmAway"
	SecurityArmInstant = "ArmInstant"
	SecurityAlarm      = "Alarm"
	SecurityFire       = "Fire"
	SecurityEntryDelay = "EntryDelay"
	SecurityExitDelay  = "ExitDelay"
)

// Lock states in wire form.
const (
	LockLocked   = "locked"
	LockUnlocked = "unlocked"
	LockJammed   = "jammed"
)

type lightState struct {
	ID    ID  `json:"id"`
	Level int `json:"level"`
	Time  int `json:"time"`
}

type shadeState struct {
	ID       ID  `json:"id"`
	Position int `json:"position"`
}

type thermostatMode struct {
	ID   ID     `json:"id"`
	Mode string `json:"mode"`
}

type setPointRequest struct {
	ID        ID         `json:"id"`
	SetPoints []SetPoint `json:"setpoints"`
}

// SetLightLevel sets a light to a wire level (0-65535) immediately.
func (c *Client) SetLightLevel(ctx context.Context, id ID, level int) error {
	body := map[string][]lightState{"lights": {{ID: id, Level: level}}}
	return c.command(ctx, "set light level", id, "/Lights/SetState", body)
}

// SetShadePosition moves a shade to a wire position (0-65535).
func (c *Client) SetShadePosition(ctx context.Context, id ID, position int) error {
	body := map[string][]shadeState{"shades": {{ID: id, Position: position}}}
	return c.command(ctx, "set shade position", id, "/Shades/SetState", body)
}

// RecallScene activates a scene.
func (c *Client) RecallScene(ctx context.Context, id ID) error {
	return c.command(ctx, "recall scene", id, "/SCENES/RECALL/"+url.PathEscape(string(id)), nil)
}

// SetThermostatSetPoint writes one set point (kind Cool, Heat or Auto) in deci-units.
func (c *Client) SetThermostatSetPoint(ctx context.Context, id ID, kind string, temperature int) error {
	body := setPointRequest{
		ID:        id,
		SetPoints: []SetPoint{{Type: kind, Temperature: temperature}},
	}
	return c.command(ctx, "set thermostat set point", id, "/thermostats/SetPoint", body)
}

// SetThermostatMode sets the system mode (OFF, HEAT, COOL, AUTO).
func (c *Client) SetThermostatMode(ctx context.Context, id ID, mode string) error {
	body := map[string][]thermostatMode{"thermostats": {{ID: id, Mode: mode}}}
	return c.command(ctx, "set thermostat mode", id, "/thermostats/mode", body)
}

// SetThermostatFanMode sets the fan mode (AUTO, ON).
func (c *Client) SetThermostatFanMode(ctx context.Context, id ID, mode string) error {
	body := map[string][]thermostatMode{"thermostats": {{ID: id, Mode: mode}}}
	return c.command(ctx, "set thermostat fan mode", id, "/thermostats/fanmode", body)
}

// LockDoor secures a door lock.
func (c *Client) LockDoor(ctx context.Context, id ID) error {
	return c.command(ctx, "lock door", id, "/doorlocks/lock/"+url.PathEscape(string(id)), nil)
}

// UnlockDoor releases a door lock.
func (c *Client) UnlockDoor(ctx context.Context, id ID) error {
	return c.command(ctx, "unlock door", id, "/doorlocks/unlock/"+url.PathEscape(string(id)), nil)
}

// SetSecurityState moves a security panel to a wire state (Disarmed, ArmStay,
// ArmAway, ArmInstant).
func (c *Client) SetSecurityState(ctx context.Context, id ID, state string) error {
	body := map[string]string{"state": state}
	return c.command(ctx, "set security state", id, "/securitydevices/"+url.PathEscape(string(id)), body)
}

func (c *Client) command(ctx context.Context, name string, id ID, path string, body any) error {
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrCommand, name, id, err)
	}
	c.logger.Debug("hub command sent", "command", name, "id", id)
	return nil
}
