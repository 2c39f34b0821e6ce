package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Lumen Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Account  AccountConfig  `yaml:"account"`
	Broker   BrokerConfig   `yaml:"broker"`
	Radio    RadioConfig    `yaml:"radio"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AccountConfig contains cloud account credentials and endpoints.
type AccountConfig struct {
	// Email and Password authenticate against the vendor cloud.
	Email    string `yaml:"email"`
	Password string `yaml:"password"`

	// APIBaseURL is the base URL of the account REST endpoint
	// (login and device enumeration).
	APIBaseURL string `yaml:"api_base_url"`

	// APIKey is sent as the x-api-key header on REST calls.
	APIKey string `yaml:"api_key"`

	// ClientID identifies this client instance to the cloud. Must be a
	// 32-character hex string. Generated on first run if empty.
	ClientID string `yaml:"client_id"`

	// CertDir is the directory holding broker identity certificates.
	// The login response names which certificate pair to use.
	CertDir string `yaml:"cert_dir"`

	// CAFile is the root CA bundle for the broker TLS connection.
	CAFile string `yaml:"ca_file"`
}

// BrokerConfig contains cloud message broker connection details.
// Reconnect backoff, QoS, and queueing policy are fixed in the broker
// package, not configurable.
type BrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RadioConfig contains short-range radio gateway settings.
type RadioConfig struct {
	// Enabled controls whether the radio transport is available at all.
	// When false, radio-only devices are visible but not commandable.
	Enabled bool `yaml:"enabled"`

	// GatewayPort is the serial device of the attached radio gateway
	// (e.g. /dev/ttyUSB0).
	GatewayPort string `yaml:"gateway_port"`

	// Baud is the serial line speed. Default: 115200.
	Baud int `yaml:"baud"`
}

// DatabaseConfig contains SQLite snapshot store settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains state-history recorder settings.
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LUMEN_SECTION_KEY
// For example: LUMEN_ACCOUNT_PASSWORD, LUMEN_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			Port: 8883,
		},
		Radio: RadioConfig{
			Enabled: true,
			Baud:    115200,
		},
		Database: DatabaseConfig{
			Path:        "./data/lumen.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LUMEN_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Account (credentials normally come from the environment, not the file)
	if v := os.Getenv("LUMEN_ACCOUNT_EMAIL"); v != "" {
		cfg.Account.Email = v
	}
	if v := os.Getenv("LUMEN_ACCOUNT_PASSWORD"); v != "" {
		cfg.Account.Password = v
	}
	if v := os.Getenv("LUMEN_ACCOUNT_API_KEY"); v != "" {
		cfg.Account.APIKey = v
	}
	if v := os.Getenv("LUMEN_ACCOUNT_CLIENT_ID"); v != "" {
		cfg.Account.ClientID = v
	}

	// Broker
	if v := os.Getenv("LUMEN_BROKER_HOST"); v != "" {
		cfg.Broker.Host = v
	}
	if v := os.Getenv("LUMEN_BROKER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Broker.Port = port
		}
	}

	// Radio
	if v := os.Getenv("LUMEN_RADIO_GATEWAY_PORT"); v != "" {
		cfg.Radio.GatewayPort = v
	}

	// Database
	if v := os.Getenv("LUMEN_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("LUMEN_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Account validation
	if c.Account.Email == "" {
		errs = append(errs, "account.email is required")
	}
	if c.Account.Password == "" {
		errs = append(errs, "account.password is required (set LUMEN_ACCOUNT_PASSWORD environment variable)")
	}
	if c.Account.APIBaseURL == "" {
		errs = append(errs, "account.api_base_url is required")
	}
	if c.Account.ClientID != "" && len(c.Account.ClientID) != clientIDLength {
		errs = append(errs, "account.client_id must be a 32-character hex string")
	}

	// Broker validation
	if c.Broker.Host == "" {
		errs = append(errs, "broker.host is required")
	}
	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		errs = append(errs, "broker.port must be between 1 and 65535")
	}

	// Radio validation
	if c.Radio.Enabled && c.Radio.GatewayPort == "" {
		errs = append(errs, "radio.gateway_port is required when radio is enabled")
	}
	if c.Radio.Baud <= 0 {
		errs = append(errs, "radio.baud must be positive")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// InfluxDB validation (only when enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set LUMEN_INFLUXDB_TOKEN environment variable)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// clientIDLength is the required length of the cloud client identifier.
const clientIDLength = 32
