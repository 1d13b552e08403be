package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Latchwork Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Controller ControllerConfig `yaml:"controller"`
	Cache      CacheConfig      `yaml:"cache"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Mail       MailConfig       `yaml:"mail"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// ControllerConfig describes how to reach the physical door controller.
// The controller's IP address is dynamic (reported via heartbeat); only the
// port and request timeout are static configuration.
type ControllerConfig struct {
	Port           int `yaml:"port"`
	RequestTimeout int `yaml:"request_timeout"` // seconds
}

// CacheConfig contains TTL settings for the in-process caches (seconds).
type CacheConfig struct {
	VerificationTTL int `yaml:"verification_ttl"`
	LocatorTTL      int `yaml:"locator_ttl"`
}

// MQTTConfig contains MQTT broker connection settings for controller
// heartbeat announcements. Optional; disabled by default.
type MQTTConfig struct {
	Enabled bool             `yaml:"enabled"`
	Broker  MQTTBrokerConfig `yaml:"broker"`
	Auth    MQTTAuthConfig   `yaml:"auth"`
	QoS     int              `yaml:"qos"`
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

// InfluxDBConfig contains InfluxDB connection settings for scan/door telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MailConfig contains SMTP settings for password-recovery email.
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT       JWTConfig `yaml:"jwt"`
	DeviceKey string    `yaml:"device_key"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
	ResetTokenTTL  int    `yaml:"reset_token_ttl"`  // minutes
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LATCHWORK_SECTION_KEY
// For example: LATCHWORK_DATABASE_PATH, LATCHWORK_JWT_SECRET
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

// defaultCacheTTLSeconds is the default lifetime for cached authorization
// flags and the cached controller address (10 days). Both change rarely;
// heartbeat writes invalidate the locator cache ahead of expiry.
const defaultCacheTTLSeconds = 864000

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/latchwork.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Controller: ControllerConfig{
			Port:           19003,
			RequestTimeout: 5,
		},
		Cache: CacheConfig{
			VerificationTTL: defaultCacheTTLSeconds,
			LocatorTTL:      defaultCacheTTLSeconds,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "latchwork-core",
			},
			QoS: 1,
		},
		Mail: MailConfig{
			Port: 587,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
				ResetTokenTTL:  30,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LATCHWORK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LATCHWORK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("LATCHWORK_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("LATCHWORK_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("LATCHWORK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LATCHWORK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LATCHWORK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("LATCHWORK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("LATCHWORK_MAIL_USERNAME"); v != "" {
		cfg.Mail.Username = v
	}
	if v := os.Getenv("LATCHWORK_MAIL_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}

	// Secrets: always override in production.
	if v := os.Getenv("LATCHWORK_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("LATCHWORK_DEVICE_KEY"); v != "" {
		cfg.Security.DeviceKey = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Controller.Port < 1 || c.Controller.Port > 65535 {
		errs = append(errs, "controller.port must be between 1 and 65535")
	}
	if c.Controller.RequestTimeout <= 0 {
		errs = append(errs, "controller.request_timeout must be positive")
	}

	if c.Cache.VerificationTTL <= 0 {
		errs = append(errs, "cache.verification_ttl must be positive")
	}
	if c.Cache.LocatorTTL <= 0 {
		errs = append(errs, "cache.locator_ttl must be positive")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// A forged token or device key grants physical entry to a building, so
	// empty or short secrets are rejected outright rather than warned about.
	const minSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set LATCHWORK_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if c.Security.DeviceKey == "" {
		errs = append(errs, "security.device_key is required (set LATCHWORK_DEVICE_KEY environment variable)")
	} else if len(c.Security.DeviceKey) < minSecretLength {
		errs = append(errs, "security.device_key must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetVerificationTTL returns the verification cache TTL as a Duration.
func (c *Config) GetVerificationTTL() time.Duration {
	return time.Duration(c.Cache.VerificationTTL) * time.Second
}

// GetLocatorTTL returns the locator cache TTL as a Duration.
func (c *Config) GetLocatorTTL() time.Duration {
	return time.Duration(c.Cache.LocatorTTL) * time.Second
}

// GetAccessTokenTTL returns the access token lifetime as a Duration.
func (c JWTConfig) GetAccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Minute
}

// GetResetTokenTTL returns the password reset token lifetime as a Duration.
func (c JWTConfig) GetResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenTTL) * time.Minute
}

// GetControllerTimeout returns the controller request timeout as a Duration.
func (c *Config) GetControllerTimeout() time.Duration {
	return time.Duration(c.Controller.RequestTimeout) * time.Second
}
