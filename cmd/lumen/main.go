// Lumen Core - Smart Lighting Control Engine
//
// This is the main entry point for the Lumen Core daemon. Lumen keeps
// a household's smart lighting in sync across two transports:
//   - Cloud message broker (primary; TLS client certificate identity)
//   - Short-range radio via a serial gateway dongle (fallback)
//
// Device identity and last-known state survive restarts in SQLite, so
// radio-capable devices stay commandable while the cloud is unreachable.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/ewanmcc/lumen-core/migrations"

	"github.com/ewanmcc/lumen-core/internal/account"
	"github.com/ewanmcc/lumen-core/internal/client"
	"github.com/ewanmcc/lumen-core/internal/device"
	"github.com/ewanmcc/lumen-core/internal/history"
	"github.com/ewanmcc/lumen-core/internal/infrastructure/config"
	"github.com/ewanmcc/lumen-core/internal/infrastructure/database"
	"github.com/ewanmcc/lumen-core/internal/infrastructure/logging"
	"github.com/ewanmcc/lumen-core/internal/transport/broker"
	"github.com/ewanmcc/lumen-core/internal/transport/radio"
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

// snapshotTimeout bounds each device snapshot write triggered by an
// engine event.
const snapshotTimeout = 5 * time.Second

// cloudRetryInterval is how often cloud bring-up is retried after a
// transient startup failure.
const cloudRetryInterval = 30 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Lumen Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
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

	// Open database
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise device registry from persisted snapshots, so known
	// devices are addressable before the first cloud enumeration.
	deviceRepo := device.NewSQLiteRepository(db.DB)
	registry := device.NewRegistry(device.DefaultCatalog())
	registry.SetLogger(log)

	snapshots, err := deviceRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading device snapshots: %w", err)
	}
	restored := registry.Restore(snapshots)
	log.Info("device registry initialised", "restored", restored)

	// Account client for login and device enumeration
	acct := account.NewClient(account.Options{
		BaseURL:  cfg.Account.APIBaseURL,
		APIKey:   cfg.Account.APIKey,
		Email:    cfg.Account.Email,
		Password: cfg.Account.Password,
		ClientID: cfg.Account.ClientID,
		CertDir:  cfg.Account.CertDir,
	})
	if cfg.Account.ClientID == "" {
		log.Info("generated client id; set account.client_id to keep it stable",
			"client_id", acct.ClientID(),
		)
	}

	// Open the radio gateway (optional). The engine owns the pool and
	// closes it; the serial port itself is closed here, after the
	// engine's teardown has released the links.
	var pool *radio.Pool
	if cfg.Radio.Enabled {
		gateway, gwErr := radio.OpenGateway(radio.GatewayConfig{
			PortPath: cfg.Radio.GatewayPort,
			BaudRate: cfg.Radio.Baud,
		})
		if gwErr != nil {
			return fmt.Errorf("opening radio gateway: %w", gwErr)
		}
		defer func() {
			log.Info("closing radio gateway")
			if closeErr := gateway.Close(); closeErr != nil {
				log.Error("error closing radio gateway", "error", closeErr)
			}
		}()
		gateway.SetLogger(log)

		pool = radio.NewPool(gateway, radio.PoolOptions{})
		pool.SetLogger(log)
		log.Info("radio gateway opened", "port", cfg.Radio.GatewayPort)
	} else {
		log.Info("radio disabled")
	}

	// Connect to InfluxDB (optional)
	var recorder *history.Recorder
	if cfg.InfluxDB.Enabled {
		recorder, err = history.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing history recorder")
			if closeErr := recorder.Close(); closeErr != nil {
				log.Error("error closing history recorder", "error", closeErr)
			}
		}()
		recorder.SetOnError(func(err error) {
			log.Error("history write error", "error", err)
		})
		log.Info("history recorder connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("history recorder disabled")
	}

	// Build the engine
	engineOpts := client.Options{
		Account:  acct,
		Registry: registry,
		Broker: broker.Options{
			Host:   cfg.Broker.Host,
			Port:   cfg.Broker.Port,
			CAFile: cfg.Account.CAFile,
		},
		Events: engineEvents(ctx, log, deviceRepo, recorder),
		Logger: log,
	}
	if pool != nil {
		engineOpts.Radio = pool
	}

	engine, err := client.NewClient(engineOpts)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	defer func() {
		log.Info("closing engine")
		if closeErr := engine.Close(); closeErr != nil {
			log.Error("error closing engine", "error", closeErr)
		}
	}()

	// Bring the cloud side up: broker session, then enumeration.
	// Credential problems are config errors and fail startup. Transient
	// failures are fatal only when there is no radio to fall back on;
	// otherwise the daemon serves restored devices over radio and keeps
	// retrying in the background.
	if err := bringUpCloud(ctx, engine); err != nil {
		if !cfg.Radio.Enabled || isCredentialError(err) {
			return err
		}
		log.Warn("cloud unavailable, continuing on radio with restored devices", "error", err)
		go retryCloud(ctx, engine, log)
	} else {
		log.Info("cloud connected", "devices", registry.Count())
	}

	// Verify infrastructure connections are healthy. Broker session
	// health is managed inside the engine; the paho layer reconnects
	// on its own.
	if err := healthCheck(ctx, db, recorder); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Engine (broker session + pooled radio links)
	// 2. InfluxDB recorder (if enabled)
	// 3. Radio gateway port (if enabled)
	// 4. Database

	log.Info("Lumen Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LUMEN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LUMEN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// engineEvents wires the engine's notification hooks to logging,
// snapshot persistence, and the optional history recorder.
//
// Handlers run on engine goroutines and must not call back into the
// engine, so they only log and write.
//
// Parameters:
//   - ctx: Daemon context; snapshot writes stop when it is cancelled
//   - log: Logger instance
//   - repo: Snapshot store
//   - recorder: History recorder (may be nil if disabled)
//
// Returns:
//   - client.Events: Hook set for client.Options
func engineEvents(ctx context.Context, log *logging.Logger, repo device.Repository, recorder *history.Recorder) client.Events {
	saveSnapshot := func(dev *device.Device) {
		// Detached from shutdown cancellation: the database closes after
		// the engine, so a final flag-clearing event can still persist.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
		defer cancel()
		if err := repo.Save(saveCtx, dev); err != nil {
			log.Error("persisting device snapshot",
				"device", dev.Identifier,
				"error", err,
			)
		}
	}

	return client.Events{
		OnNewDevice: func(dev *device.Device, _ json.RawMessage) {
			log.Info("device discovered",
				"device", dev.Identifier,
				"product", dev.ProductCode,
				"name", dev.Name,
			)
			saveSnapshot(dev)
			if recorder != nil {
				recorder.RecordState(dev)
			}
		},
		OnDeviceUpdate: func(dev *device.Device, _ []byte) {
			log.Debug("device state updated",
				"device", dev.Identifier,
				"reachable", !dev.Status.Offline(),
			)
			saveSnapshot(dev)
			if recorder != nil {
				recorder.RecordState(dev)
			}
		},
		OnError: func(dev *device.Device, msg string, err error) {
			identifier := ""
			if dev != nil {
				identifier = dev.Identifier
			}
			log.Warn("transport error",
				"device", identifier,
				"operation", msg,
				"error", err,
			)
			if recorder != nil {
				recorder.RecordError(identifier, fmt.Sprintf("%s: %v", msg, err))
			}
		},
	}
}

// bringUpCloud establishes the broker session and runs the initial
// device enumeration.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - engine: Engine to bring up
//
// Returns:
//   - error: First failure, or nil when both steps succeed
func bringUpCloud(ctx context.Context, engine *client.Client) error {
	if err := engine.EnsureBrokerSession(ctx); err != nil {
		return fmt.Errorf("establishing broker session: %w", err)
	}
	if err := engine.RefreshDevices(ctx); err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	return nil
}

// retryCloud keeps attempting cloud bring-up until it succeeds, the
// credentials are rejected, or the daemon shuts down.
func retryCloud(ctx context.Context, engine *client.Client, log *logging.Logger) {
	ticker := time.NewTicker(cloudRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := bringUpCloud(ctx, engine)
			if err == nil {
				log.Info("cloud connected")
				return
			}
			if isCredentialError(err) {
				log.Error("cloud credentials rejected, giving up", "error", err)
				return
			}
			log.Warn("cloud retry failed", "error", err)
		}
	}
}

// isCredentialError reports whether the cloud failure is a credential
// or provisioning problem that retrying cannot fix.
func isCredentialError(err error) bool {
	return errors.Is(err, account.ErrAuthentication) ||
		errors.Is(err, account.ErrCertificateMissing)
}

// healthCheck verifies infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - recorder: History recorder to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, recorder *history.Recorder) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check history recorder (if enabled)
	if recorder != nil {
		if err := recorder.HealthCheck(ctx); err != nil {
			return fmt.Errorf("history: %w", err)
		}
	}

	return nil
}
