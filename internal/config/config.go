// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the console gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`

	// BackendBaseURL is the base URL of the external verification/inventory backend (e.g. http://localhost:8000).
	BackendBaseURL string `mapstructure:"BACKEND_BASE_URL"`
	// BackendTimeout is the per-request HTTP timeout for backend calls (e.g. "15s").
	BackendTimeout string `mapstructure:"BACKEND_TIMEOUT"`
	// AdminToken is a pre-provisioned operator token. When empty, AdminPassword is used to log in.
	AdminToken string `mapstructure:"ADMIN_TOKEN"`
	// AdminPassword is the operator password for POST /admin/login.
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
	// AccountType is the inventory account type sent on create (default "ID").
	AccountType string `mapstructure:"ACCOUNT_TYPE"`

	// CatalogTTL is how long a country catalog snapshot is reused before reloading (e.g. "5m").
	CatalogTTL string `mapstructure:"CATALOG_TTL"`
	// PendingCredentialTTL is how long a verified but unpersisted credential is kept for finalize retries.
	PendingCredentialTTL string `mapstructure:"PENDING_CREDENTIAL_TTL"`
	// SessionIdleTTL is how long an untouched issuance session stays in memory.
	SessionIdleTTL string `mapstructure:"SESSION_IDLE_TTL"`
	// SweepInterval is the period of the registry sweeper and health refresh.
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`

	// Pending-credential store (optional). When RedisAddr is empty an in-memory store is used.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	// CredentialSealKey is a hex-encoded 32-byte key used to seal credentials stored in Redis.
	CredentialSealKey string `mapstructure:"CREDENTIAL_SEAL_KEY"`

	// DatabaseURL is the Postgres DSN for the audit log; empty disables auditing.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// InventoryEventsTopic is the Kafka topic for issuance events (default inventory-events).
	InventoryEventsTopic string `mapstructure:"INVENTORY_EVENTS_TOPIC"`

	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// DevBackendEnabled allows cmd/devbackend to start. Must not be true when Env is production.
	DevBackendEnabled bool `mapstructure:"DEV_BACKEND_ENABLED"`
	// DevBackendAddr is the HTTP listen address of the dev backend.
	DevBackendAddr string `mapstructure:"DEV_BACKEND_ADDR"`
	// DevAdminPassword is the operator password accepted by the dev backend.
	DevAdminPassword string `mapstructure:"DEV_ADMIN_PASSWORD"`
	// DevTwoFactor lists phones with a 2FA password in the dev backend, as "phone=password,phone=password".
	DevTwoFactor string `mapstructure:"DEV_TWO_FACTOR"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("BACKEND_BASE_URL", "")
	v.SetDefault("BACKEND_TIMEOUT", "15s")
	v.SetDefault("ADMIN_TOKEN", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("ACCOUNT_TYPE", "ID")
	v.SetDefault("CATALOG_TTL", "5m")
	v.SetDefault("PENDING_CREDENTIAL_TTL", "15m")
	v.SetDefault("SESSION_IDLE_TTL", "30m")
	v.SetDefault("SWEEP_INTERVAL", "1m")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CREDENTIAL_SEAL_KEY", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("INVENTORY_EVENTS_TOPIC", "inventory-events")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "session-issuance-console")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("DEV_BACKEND_ENABLED", false)
	v.SetDefault("DEV_BACKEND_ADDR", ":8090")
	v.SetDefault("DEV_ADMIN_PASSWORD", "")
	v.SetDefault("DEV_TWO_FACTOR", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}

	durations := map[string]string{
		"BACKEND_TIMEOUT":        cfg.BackendTimeout,
		"CATALOG_TTL":            cfg.CatalogTTL,
		"PENDING_CREDENTIAL_TTL": cfg.PendingCredentialTTL,
		"SESSION_IDLE_TTL":       cfg.SessionIdleTTL,
		"SWEEP_INTERVAL":         cfg.SweepInterval,
	}
	for key, raw := range durations {
		if d, err := time.ParseDuration(raw); err != nil || d <= 0 {
			return nil, errors.New("config: " + key + " must be a positive duration")
		}
	}

	if cfg.RedisAddr != "" {
		if _, err := cfg.SealKey(); err != nil {
			return nil, err
		}
	}

	if cfg.DevBackendEnabled && cfg.Env == "production" {
		return nil, errors.New("config: DEV_BACKEND_ENABLED must not be true when APP_ENV=production")
	}

	if strings.TrimSpace(cfg.AccountType) == "" {
		cfg.AccountType = "ID"
	}

	return &cfg, nil
}

// Validate checks the settings cmd/console needs beyond what Load enforces.
func (c *Config) Validate() error {
	if c.BackendBaseURL == "" {
		return errors.New("config: BACKEND_BASE_URL must be set")
	}
	if c.AdminToken == "" && c.AdminPassword == "" {
		return errors.New("config: one of ADMIN_TOKEN or ADMIN_PASSWORD must be set")
	}
	return nil
}

// SealKey decodes CredentialSealKey. It must be exactly 32 bytes of hex.
func (c *Config) SealKey() (*[32]byte, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(c.CredentialSealKey))
	if err != nil || len(raw) != 32 {
		return nil, errors.New("config: CREDENTIAL_SEAL_KEY must be 64 hex characters when REDIS_ADDR is set")
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

// BackendRequestTimeout parses BackendTimeout. Returns 15s if unset or invalid.
func (c *Config) BackendRequestTimeout() time.Duration {
	return parseDuration(c.BackendTimeout, 15*time.Second)
}

// CatalogSnapshotTTL parses CatalogTTL. Returns 5m if unset or invalid.
func (c *Config) CatalogSnapshotTTL() time.Duration {
	return parseDuration(c.CatalogTTL, 5*time.Minute)
}

// PendingTTL parses PendingCredentialTTL. Returns 15m if unset or invalid.
func (c *Config) PendingTTL() time.Duration {
	return parseDuration(c.PendingCredentialTTL, 15*time.Minute)
}

// IdleTTL parses SessionIdleTTL. Returns 30m if unset or invalid.
func (c *Config) IdleTTL() time.Duration {
	return parseDuration(c.SessionIdleTTL, 30*time.Minute)
}

// SweepEvery parses SweepInterval. Returns 1m if unset or invalid.
func (c *Config) SweepEvery() time.Duration {
	return parseDuration(c.SweepInterval, time.Minute)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event streaming is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DevTwoFactorPasswords parses DevTwoFactor into phone -> password. Malformed pairs are skipped.
func (c *Config) DevTwoFactorPasswords() map[string]string {
	out := make(map[string]string)
	if c == nil {
		return out
	}
	for _, pair := range strings.Split(c.DevTwoFactor, ",") {
		phone, pw, ok := strings.Cut(pair, "=")
		phone = strings.TrimSpace(phone)
		if !ok || phone == "" || pw == "" {
			continue
		}
		out[phone] = pw
	}
	return out
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
