package config

import (
	"fmt"
	"net/url"
	"slices"
)

// validSSLModes are the PostgreSQL SSL modes accepted by pgx.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// HTTP server
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen_addr cannot be empty", ErrInvalidListenAddr)
	}

	// Chat defaults
	if c.MessagesLimit < 1 {
		return fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidMessagesLimit, c.MessagesLimit)
	}

	// Upstream API
	u, err := url.Parse(c.UpstreamBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidUpstreamURL, c.UpstreamBaseURL)
	}

	// PostgreSQL
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	// Sessions
	if c.SessionTTLHours < 1 {
		return fmt.Errorf("%w: must be at least 1 hour, got %d", ErrInvalidSessionTTL, c.SessionTTLHours)
	}

	return nil
}

// ValidateServe validates the additional requirements of serve mode.
// The HMAC secret signs session cookies, so a weak secret would allow
// session forgery.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.HMACSecret == "" {
		return fmt.Errorf("%w: set the HMAC_SECRET environment variable (32+ random bytes)", ErrMissingHMACSecret)
	}
	if len(c.HMACSecret) < minHMACSecretLen {
		return fmt.Errorf("%w: must be at least %d bytes, got %d", ErrInvalidHMACSecret, minHMACSecretLen, len(c.HMACSecret))
	}

	return nil
}
