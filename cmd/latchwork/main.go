// Latchwork Core - RFID door access gateway
//
// This is the main entry point for the Latchwork Core application. It wires
// the SQLite store, the access-control services, the optional MQTT and
// InfluxDB integrations, and the HTTP/WebSocket API into one process that
// gates a physical door.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/latchwork/latchwork-core/migrations"

	"github.com/latchwork/latchwork-core/internal/api"
	"github.com/latchwork/latchwork-core/internal/auth"
	"github.com/latchwork/latchwork-core/internal/device"
	"github.com/latchwork/latchwork-core/internal/infrastructure/config"
	"github.com/latchwork/latchwork-core/internal/infrastructure/database"
	"github.com/latchwork/latchwork-core/internal/infrastructure/influxdb"
	"github.com/latchwork/latchwork-core/internal/infrastructure/logging"
	"github.com/latchwork/latchwork-core/internal/infrastructure/mqtt"
	"github.com/latchwork/latchwork-core/internal/logbook"
	"github.com/latchwork/latchwork-core/internal/notify"
	"github.com/latchwork/latchwork-core/internal/rfid"
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
	log.Info("starting Latchwork Core",
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

	// Open database and apply migrations
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	users := auth.NewUserRepository(db.DB)
	resets := auth.NewResetTokenRepository(db.DB)
	tags := rfid.NewTagRepository(db.DB)
	controllers := device.NewControllerRepository(db.DB)
	logs := logbook.NewRepository(db.DB)

	// Access-control services
	tokens := auth.NewTokenService(
		cfg.Security.JWT.Secret,
		cfg.Security.DeviceKey,
		cfg.Security.JWT.GetAccessTokenTTL(),
	)
	verifier := auth.NewVerifier(users, cfg.GetVerificationTTL())
	engine := rfid.NewEngine(tags, log)
	locator := device.NewLocator(controllers, cfg.GetLocatorTTL())
	dispatcher := device.NewDispatcher(
		cfg.Controller.Port,
		cfg.Security.DeviceKey,
		cfg.GetControllerTimeout(),
		controllers,
		log,
	)
	mailer := notify.NewMailer(cfg.Mail, log)

	// Connect to MQTT broker (optional)
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
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Users:       users,
		Resets:      resets,
		Tokens:      tokens,
		Verifier:    verifier,
		Engine:      engine,
		Locator:     locator,
		Dispatcher:  dispatcher,
		Controllers: controllers,
		Logs:        logs,
		Mailer:      mailer,
		MQTT:        mqttClient,
		Influx:      influxClient,
		ResetTTL:    cfg.Security.JWT.GetResetTokenTTL(),
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}

// getConfigPath returns the configuration file path from the command line,
// environment, or default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if path := os.Getenv("LATCHWORK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
