package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for hubsync.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hub       HubConfig       `yaml:"hub"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HubConfig describes the home-automation controller being synchronised.
type HubConfig struct {
	// Host is the controller address (hostname or IP, optionally with port).
	Host string `yaml:"host"`

	// APIToken is the long-lived token exchanged for short-lived session keys.
	// Prefer setting it via HUBSYNC_HUB_API_TOKEN.
	APIToken string `yaml:"api_token"`

	// AllowedTypes is the allow-list of resolved device types exposed downstream.
	AllowedTypes []string `yaml:"allowed_types"`

	// RefreshInterval is the time between scheduled discovery passes.
	// Default: 30s
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// RequestTimeout bounds every outbound call to the controller.
	// Default: 10s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// InsecureSkipVerify disables TLS verification (controllers ship self-signed certificates).
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// DedupeDevices collapses duplicate device ids across collections, keeping the
	// richer record. Off by default to match the controller's own listing.
	DedupeDevices bool `yaml:"dedupe_devices"`
}

// DatabaseConfig contains SQLite settings for the optional state history.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetention is how long recorded states are kept. Older entries
	// are pruned at start-up. Default: 720h (30 days)
	HistoryRetention time.Duration `yaml:"history_retention"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
// An empty AllowedOrigins list allows every origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// APITimeoutConfig bounds HTTP server reads, writes and keep-alive idling.
type APITimeoutConfig struct {
	Read  time.Duration `yaml:"read"`
	Write time.Duration `yaml:"write"`
	Idle  time.Duration `yaml:"idle"`
}

// WebSocketConfig contains WebSocket settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load builds a Config from defaults, then the YAML file at path, then
// HUBSYNC_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultAllowedTypes is the allow-list used when none is configured.
var DefaultAllowedTypes = []string{
	"Dimmer",
	"Switch",
	"Shade",
	"Thermostat",
	"DoorLock",
	"SecuritySystem",
	"Scene",
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			AllowedTypes:    append([]string(nil), DefaultAllowedTypes...),
			RefreshInterval: 30 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:             "./data/hubsync.db",
			WALMode:          true,
			BusyTimeout:      5,
			HistoryRetention: 30 * 24 * time.Hour,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hubsync",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30 * time.Second,
				Write: 30 * time.Second,
				Idle:  60 * time.Second,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// envOverrides maps environment variables to the fields they replace.
// Secrets belong here rather than in the YAML file.
var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"HUBSYNC_HUB_HOST", func(c *Config) *string { return &c.Hub.Host }},
	{"HUBSYNC_HUB_API_TOKEN", func(c *Config) *string { return &c.Hub.APIToken }},
	{"HUBSYNC_DATABASE_PATH", func(c *Config) *string { return &c.Database.Path }},
	{"HUBSYNC_MQTT_HOST", func(c *Config) *string { return &c.MQTT.Broker.Host }},
	{"HUBSYNC_MQTT_USERNAME", func(c *Config) *string { return &c.MQTT.Auth.Username }},
	{"HUBSYNC_MQTT_PASSWORD", func(c *Config) *string { return &c.MQTT.Auth.Password }},
	{"HUBSYNC_INFLUXDB_URL", func(c *Config) *string { return &c.InfluxDB.URL }},
	{"HUBSYNC_INFLUXDB_TOKEN", func(c *Config) *string { return &c.InfluxDB.Token }},
}

func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			*o.field(cfg) = v
		}
	}
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []string

	if c.Hub.Host == "" {
		errs = append(errs, "hub.host is required")
	}
	if c.Hub.APIToken == "" {
		errs = append(errs, "hub.api_token is required (set HUBSYNC_HUB_API_TOKEN environment variable)")
	}
	if len(c.Hub.AllowedTypes) == 0 {
		errs = append(errs, "hub.allowed_types must list at least one device type")
	}
	for _, t := range c.Hub.AllowedTypes {
		if strings.TrimSpace(t) == "" {
			errs = append(errs, "hub.allowed_types must not contain empty entries")
			break
		}
	}
	if c.Hub.RefreshInterval <= 0 {
		errs = append(errs, "hub.refresh_interval must be positive")
	}
	if c.Hub.RequestTimeout <= 0 {
		errs = append(errs, "hub.request_timeout must be positive")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}
	if c.Database.Enabled && c.Database.HistoryRetention <= 0 {
		errs = append(errs, "database.history_retention must be positive")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// AllowedTypeSet returns the allow-list as a lookup set.
func (h HubConfig) AllowedTypeSet() map[string]bool {
	set := make(map[string]bool, len(h.AllowedTypes))
	for _, t := range h.AllowedTypes {
		set[strings.TrimSpace(t)] = true
	}
	return set
}
