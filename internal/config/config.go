// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.wavechat/config.yaml or ./config.yaml)
//  3. Default values
//
// Security: sensitive values (database password, HMAC secret) are never
// logged and are masked in MarshalJSON. Validation is fail-fast with
// sentinel errors checkable via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidListenAddr indicates the HTTP listen address is invalid.
	ErrInvalidListenAddr = errors.New("invalid listen address")

	// ErrInvalidMessagesLimit indicates the per-user message ceiling is out of range.
	ErrInvalidMessagesLimit = errors.New("invalid messages limit")

	// ErrInvalidUpstreamURL indicates the upstream base URL is invalid.
	ErrInvalidUpstreamURL = errors.New("invalid upstream base URL")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrMissingHMACSecret indicates the HMAC secret is not set.
	ErrMissingHMACSecret = errors.New("missing HMAC secret")

	// ErrInvalidHMACSecret indicates the HMAC secret is too short.
	ErrInvalidHMACSecret = errors.New("invalid HMAC secret")

	// ErrInvalidSessionTTL indicates the session lifetime is out of range.
	ErrInvalidSessionTTL = errors.New("invalid session TTL")
)

const (
	// DefaultMessagesLimit is the message ceiling assigned to new users.
	DefaultMessagesLimit = 100

	// DefaultUpstreamBaseURL is the WaveSpeed API endpoint.
	DefaultUpstreamBaseURL = "https://api.wavespeed.ai"

	// minHMACSecretLen is the minimum byte length for the cookie-signing secret.
	minHMACSecretLen = 32
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// HTTP server
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// Chat defaults
	MessagesLimit int `mapstructure:"messages_limit" json:"messages_limit"`

	// Upstream (WaveSpeed) API
	UpstreamBaseURL   string `mapstructure:"upstream_base_url" json:"upstream_base_url"`
	UpstreamTimeoutMS int    `mapstructure:"upstream_timeout_ms" json:"upstream_timeout_ms"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Security
	HMACSecret      string `mapstructure:"hmac_secret" json:"hmac_secret"` // SENSITIVE: masked in MarshalJSON
	SessionTTLHours int    `mapstructure:"session_ttl_hours" json:"session_ttl_hours"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".wavechat")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// HTTP defaults
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 60)

	// Chat defaults
	viper.SetDefault("messages_limit", DefaultMessagesLimit)

	// Upstream defaults
	viper.SetDefault("upstream_base_url", DefaultUpstreamBaseURL)
	viper.SetDefault("upstream_timeout_ms", 60000)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "wavechat")
	viper.SetDefault("postgres_password", "wavechat_dev_password")
	viper.SetDefault("postgres_db_name", "wavechat")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Security defaults
	viper.SetDefault("session_ttl_hours", 30*24)
}

// bindEnvVariables binds environment variables explicitly.
// DATABASE_URL is handled separately in parseDatabaseURL.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Cookie/CSRF signing secret
	mustBind("hmac_secret", "HMAC_SECRET")

	// HTTP server
	mustBind("listen_addr", "WAVECHAT_LISTEN_ADDR")
	mustBind("cors_origins", "WAVECHAT_CORS_ORIGINS")
	mustBind("trust_proxy", "WAVECHAT_TRUST_PROXY")
	mustBind("rate_burst", "WAVECHAT_RATE_BURST")

	// Chat and upstream overrides
	mustBind("messages_limit", "WAVECHAT_MESSAGES_LIMIT")
	mustBind("upstream_base_url", "WAVECHAT_UPSTREAM_BASE_URL")
	mustBind("upstream_timeout_ms", "WAVECHAT_UPSTREAM_TIMEOUT_MS")

	// NOTE: the WaveSpeed API key is NOT configuration. It lives in the
	// settings table and is managed through the admin API.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid accidental substring matches against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 bytes or fewer are fully masked; longer secrets keep the
// first and last two characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // Avoid infinite recursion
	masked := alias(c)
	masked.PostgresPassword = maskSecret(c.PostgresPassword)
	masked.HMACSecret = maskSecret(c.HMACSecret)
	return json.Marshal(masked)
}
