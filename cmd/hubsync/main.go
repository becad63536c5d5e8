// hubsync keeps a canonical, translated view of a home-automation controller
// and republishes it over REST, WebSocket and MQTT.
//
// The controller is polled on a fixed interval. Each successful pass replaces
// the device snapshot and is pushed to every enabled downstream: the MQTT
// bridge, the state history database, InfluxDB telemetry, and WebSocket
// clients of the API server. Commands arriving on any surface are translated
// back to the controller's wire format and sent immediately.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/gray-logic-hubsync/internal/api"
	"github.com/nerrad567/gray-logic-hubsync/internal/bridge"
	"github.com/nerrad567/gray-logic-hubsync/internal/history"
	"github.com/nerrad567/gray-logic-hubsync/internal/hub"
	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hubsync/internal/synchronizer"
	"github.com/nerrad567/gray-logic-hubsync/internal/telemetry"
	"github.com/nerrad567/gray-logic-hubsync/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	migrateDown := flag.Bool("migrate-down", false, "roll back the latest state history migration and exit")
	flag.Parse()

	var err error
	if *migrateDown {
		err = rollbackMigration(ctx)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear start-up sequence with optional components
	log := logging.Default()
	log.Info("starting hubsync",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	hubClient, err := hub.NewClient(hub.Options{
		Host:               cfg.Hub.Host,
		APIToken:           cfg.Hub.APIToken,
		Timeout:            cfg.Hub.RequestTimeout,
		InsecureSkipVerify: cfg.Hub.InsecureSkipVerify,
		Logger:             log.With("component", "hub"),
	})
	if err != nil {
		return fmt.Errorf("creating hub client: %w", err)
	}
	defer hubClient.Close()
	log.Info("hub client ready", "url", hubClient.BaseURL())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	syncer, err := synchronizer.New(synchronizer.Options{
		Client:          hubClient,
		AllowedTypes:    cfg.Hub.AllowedTypeSet(),
		Dedupe:          cfg.Hub.DedupeDevices,
		RefreshInterval: cfg.Hub.RefreshInterval,
		Registerer:      registry,
		Logger:          log.With("component", "synchronizer"),
	})
	if err != nil {
		return fmt.Errorf("creating synchronizer: %w", err)
	}

	// State history (optional)
	var db *database.DB
	var historyRepo history.Repository
	if cfg.Database.Enabled {
		db, err = database.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}

		repo := history.NewSQLiteRepository(db.DB)
		if pruned, pruneErr := repo.Prune(ctx, cfg.Database.HistoryRetention); pruneErr != nil {
			log.Warn("pruning state history failed", "error", pruneErr)
		} else if pruned > 0 {
			log.Info("state history pruned", "entries", pruned)
		}
		historyRepo = repo

		recorder := history.NewRecorder(repo)
		recorder.SetLogger(log.With("component", "history"))
		syncer.AddListener(recorder)
		log.Info("state history enabled", "path", cfg.Database.Path)
	} else {
		log.Info("state history disabled")
	}

	// MQTT bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		br, bridgeErr := bridge.New(bridge.Options{
			MQTT:    mqttClient,
			Source:  syncer,
			QoS:     mqttClient.QoS(),
			Version: version,
			Logger:  log.With("component", "bridge"),
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating MQTT bridge: %w", bridgeErr)
		}

		// A broker restart may have dropped retained state; republish everything
		// on the next pass.
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			br.ClearStateCache()
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		if startErr := br.Start(ctx); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			br.Stop()
		}()
		syncer.AddListener(br)
	} else {
		log.Info("MQTT bridge disabled")
	}

	// InfluxDB telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		syncer.AddListener(telemetry.NewRecorder(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	// REST API + WebSocket (optional)
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:       cfg.API,
			WS:           cfg.WebSocket,
			Logger:       log.With("component", "api"),
			Synchronizer: syncer,
			Hub:          hubClient,
			History:      historyRepo,
			Gatherer:     registry,
			Version:      version,
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}

		server, apiErr := api.New(deps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		syncer.AddListener(server)
	} else {
		log.Info("API server disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// The first pass runs inside Start; its failure is logged and retried on
	// the next tick rather than aborting start-up.
	syncer.Start(ctx)
	defer func() {
		log.Info("stopping synchronizer")
		syncer.Stop()
	}()

	log.Info("initialisation complete, waiting for shutdown signal",
		"refresh_interval", cfg.Hub.RefreshInterval,
		"allowed_types", cfg.Hub.AllowedTypes,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	// Deferred calls run in reverse: synchronizer, API, InfluxDB, bridge,
	// MQTT, database, hub session.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HUBSYNC_CONFIG environment variable if set, otherwise default.
// rollbackMigration reverts the most recently applied state history
// migration using the configured database path, then exits.
func rollbackMigration(ctx context.Context) error {
	log := logging.Default()

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Database.Path == "" {
		return errors.New("database.path is not set")
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.MigrateDown(ctx, migrations.FS); err != nil {
		return fmt.Errorf("rolling back migration: %w", err)
	}
	log.Info("latest migration rolled back", "path", db.Path())
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("HUBSYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the enabled infrastructure connections.
// Nil arguments are components that are disabled.
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
