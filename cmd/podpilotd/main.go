// PodPilot - Apple accessory presence daemon
//
// podpilotd watches the BlueZ pairing directory and BLE advertisement
// stream for Apple audio accessories (AirPods, Beats), correlates both
// into per-device state, and fans the result out to MQTT, SQLite history
// and InfluxDB telemetry as configured.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/giulioungaretti/PodPilot-sub000/internal/bluez"
	"github.com/giulioungaretti/PodPilot-sub000/internal/bridges/statebridge"
	"github.com/giulioungaretti/PodPilot-sub000/internal/engine"
	"github.com/giulioungaretti/PodPilot-sub000/internal/enrichment"
	"github.com/giulioungaretti/PodPilot-sub000/internal/history"
	"github.com/giulioungaretti/PodPilot-sub000/internal/infrastructure/config"
	"github.com/giulioungaretti/PodPilot-sub000/internal/infrastructure/database"
	"github.com/giulioungaretti/PodPilot-sub000/internal/infrastructure/influxdb"
	"github.com/giulioungaretti/PodPilot-sub000/internal/infrastructure/logging"
	"github.com/giulioungaretti/PodPilot-sub000/internal/infrastructure/mqtt"
	"github.com/giulioungaretti/PodPilot-sub000/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting PodPilot",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Enrichment tracker: latest broadcast record per product ID
	tracker := enrichment.NewTracker(cfg.GetStaleAfter())
	tracker.SetLogger(log.With("component", "tracker"))

	// BlueZ connection and watchers
	conn, err := bluez.Connect(cfg.Bluetooth.Adapter)
	if err != nil {
		return fmt.Errorf("connecting to BlueZ: %w", err)
	}
	defer func() {
		log.Info("closing BlueZ connection")
		if closeErr := conn.Close(); closeErr != nil {
			log.Error("error closing BlueZ connection", "error", closeErr)
		}
	}()
	log.Info("BlueZ connected", "adapter", cfg.Bluetooth.Adapter)

	pairing := bluez.NewPairingWatcher(conn)
	pairing.SetLogger(log.With("component", "pairing"))

	var broadcasts engine.BroadcastSource
	if cfg.Bluetooth.Discovery {
		adverts := bluez.NewAdvertisementWatcher(conn)
		adverts.SetLogger(log.With("component", "advertise"))
		broadcasts = adverts
	} else {
		log.Info("BLE discovery disabled, broadcast enrichment inactive")
	}

	// State correlation engine. No audio router on Linux yet: BlueZ has no
	// default-output query, so AudioDefault stays false.
	eng := engine.New(tracker, pairing, broadcasts, nil, cfg.GetLockoutGrace())
	eng.SetLogger(log.With("component", "engine"))

	// SQLite history (optional)
	if cfg.Database.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening database: %w", dbErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		recorder, recErr := history.NewRecorder(ctx, db)
		if recErr != nil {
			return fmt.Errorf("initialising history recorder: %w", recErr)
		}
		recorder.SetLogger(log.With("component", "history"))
		recorder.Attach(eng)
	} else {
		log.Info("history recording disabled")
	}

	// MQTT state bridge (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		bridge := statebridge.New(mqttClient, byte(cfg.MQTT.QoS))
		bridge.SetLogger(log.With("component", "statebridge"))
		bridge.Attach(eng)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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

		telemetry.NewCollector(influxClient).Attach(eng)
	} else {
		log.Info("InfluxDB disabled")
	}

	// All consumers are attached; start the engine. Start performs the
	// initial pairing enumeration, so subscribers see every device once.
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer func() {
		log.Info("stopping engine")
		eng.Stop()
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred cleanup runs in reverse order:
	// 1. Engine (detaches from BlueZ watchers)
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database (if enabled)
	// 5. BlueZ connection

	log.Info("PodPilot stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PODPILOT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PODPILOT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
