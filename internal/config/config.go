package config

import "time"

// SyncConfig is the root configuration for a bookingsync host.
type SyncConfig struct {
	API        APIConfig        `yaml:"api"`
	Connection ConnectionConfig `yaml:"connection"`
	Router     RouterConfig     `yaml:"router"`
	Saga       SagaConfig       `yaml:"saga"`
	Credential CredentialConfig `yaml:"credential"`
	Logging    LoggingConfig    `yaml:"logging"`
	Debug      DebugConfig      `yaml:"debug"`
}

// APIConfig holds booking backend settings.
type APIConfig struct {
	RestURL      string        `yaml:"rest_url"`
	WSURL        string        `yaml:"ws_url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	RateLimit    float64       `yaml:"rate_limit"` // requests per second, 0 disables throttling
	RateBurst    int           `yaml:"rate_burst"`
}

// ConnectionConfig holds realtime connection manager settings.
type ConnectionConfig struct {
	Transport        string        `yaml:"transport"` // "gorilla" or "coder"
	InitialDelay     time.Duration `yaml:"initial_delay"`
	Multiplier       float64       `yaml:"multiplier"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	SubscriberBuffer int           `yaml:"subscriber_buffer"`
}

// RouterConfig holds message router settings.
type RouterConfig struct {
	TypingWindow time.Duration `yaml:"typing_window"`
}

// SagaConfig holds booking saga settings.
type SagaConfig struct {
	// ReconcileInterval enables periodic REST reconciliation of a pending booking.
	// Zero disables it.
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// CredentialConfig locates the stored session credential.
type CredentialConfig struct {
	Path string `yaml:"path"`
	Key  string `yaml:"key"`
}

// LoggingConfig controls the slog handler built by hosts.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// DebugConfig holds the debug HTTP endpoint settings.
type DebugConfig struct {
	Port int `yaml:"port"` // 0 disables the endpoint
}
