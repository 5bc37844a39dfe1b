package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *SyncConfig) Validate() error {
	if err := validateURL("api.rest_url", c.API.RestURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("api.ws_url", c.API.WSURL, "ws", "wss"); err != nil {
		return err
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}
	if c.API.RateLimit < 0 {
		return errors.New("api.rate_limit must be >= 0")
	}
	if c.API.RateLimit > 0 && c.API.RateBurst < 1 {
		return errors.New("api.rate_burst must be >= 1 when api.rate_limit is set")
	}

	switch c.Connection.Transport {
	case "gorilla", "coder":
	default:
		return fmt.Errorf("connection.transport must be gorilla or coder, got %q", c.Connection.Transport)
	}
	if c.Connection.InitialDelay < 0 {
		return errors.New("connection.initial_delay must be >= 0")
	}
	if c.Connection.Multiplier < 1 {
		return fmt.Errorf("connection.multiplier must be >= 1, got %g", c.Connection.Multiplier)
	}
	if c.Connection.MaxDelay < c.Connection.InitialDelay {
		return fmt.Errorf("connection.max_delay (%s) cannot be less than initial_delay (%s)",
			c.Connection.MaxDelay, c.Connection.InitialDelay)
	}
	if c.Connection.SubscriberBuffer < 1 {
		return errors.New("connection.subscriber_buffer must be >= 1")
	}

	if c.Router.TypingWindow <= 0 {
		return errors.New("router.typing_window must be > 0")
	}

	if c.Saga.ReconcileInterval < 0 {
		return errors.New("saga.reconcile_interval must be >= 0")
	}

	if c.Credential.Path == "" {
		return errors.New("credential.path is required")
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Debug.Port < 0 || c.Debug.Port > 65535 {
		return fmt.Errorf("debug.port must be between 0 and 65535, got %d", c.Debug.Port)
	}

	return nil
}

// ParseLevel maps a logging.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", s)
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s must use scheme %s, got %q", field, strings.Join(schemes, " or "), u.Scheme)
}
