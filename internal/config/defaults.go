package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL          = "https://api.stayline.app/v1"
	DefaultWSURL            = "wss://api.stayline.app/realtime"
	DefaultAPITimeout       = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultRetryBackoff     = 1 * time.Second
	DefaultRateBurst        = 1
	DefaultTransport        = "gorilla"
	DefaultInitialDelay     = 1 * time.Second
	DefaultMultiplier       = 2.0
	DefaultMaxDelay         = 30 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultPingTimeout      = 60 * time.Second
	DefaultSubscriberBuffer = 256
	DefaultTypingWindow     = 3 * time.Second
	DefaultCredentialKey    = "access_token"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

func (c *SyncConfig) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}
	if c.API.RateLimit > 0 && c.API.RateBurst == 0 {
		c.API.RateBurst = DefaultRateBurst
	}

	// Connection defaults
	if c.Connection.Transport == "" {
		c.Connection.Transport = DefaultTransport
	}
	if c.Connection.InitialDelay == 0 {
		c.Connection.InitialDelay = DefaultInitialDelay
	}
	if c.Connection.Multiplier == 0 {
		c.Connection.Multiplier = DefaultMultiplier
	}
	if c.Connection.MaxDelay == 0 {
		c.Connection.MaxDelay = DefaultMaxDelay
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.SubscriberBuffer == 0 {
		c.Connection.SubscriberBuffer = DefaultSubscriberBuffer
	}

	// Router defaults
	if c.Router.TypingWindow == 0 {
		c.Router.TypingWindow = DefaultTypingWindow
	}

	// Credential defaults
	if c.Credential.Key == "" {
		c.Credential.Key = DefaultCredentialKey
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}
