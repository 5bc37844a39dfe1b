package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
api:
  rest_url: https://staging.stayline.app/v1
  ws_url: wss://staging.stayline.app/realtime
  rate_limit: 2.5
connection:
  transport: coder
  initial_delay: 500ms
credential:
  path: /var/lib/bookingsync/credentials.json
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.RestURL != "https://staging.stayline.app/v1" {
		t.Errorf("API.RestURL = %q, want %q", cfg.API.RestURL, "https://staging.stayline.app/v1")
	}
	if cfg.API.RateLimit != 2.5 {
		t.Errorf("API.RateLimit = %v, want 2.5", cfg.API.RateLimit)
	}
	if cfg.Connection.Transport != "coder" {
		t.Errorf("Connection.Transport = %q, want coder", cfg.Connection.Transport)
	}
	if cfg.Connection.InitialDelay != 500*time.Millisecond {
		t.Errorf("Connection.InitialDelay = %v, want 500ms", cfg.Connection.InitialDelay)
	}
	if cfg.Credential.Path != "/var/lib/bookingsync/credentials.json" {
		t.Errorf("Credential.Path = %q", cfg.Credential.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_CREDENTIAL_PATH", "/tmp/creds.json")

	yaml := `
credential:
  path: ${TEST_CREDENTIAL_PATH}
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Credential.Path != "/tmp/creds.json" {
		t.Errorf("Credential.Path = %q, want %q", cfg.Credential.Path, "/tmp/creds.json")
	}
}

func TestLoadEnv(t *testing.T) {
	const key = "BOOKINGSYNC_TEST_WS_URL"
	os.Unsetenv(key)
	t.Cleanup(func() { os.Unsetenv(key) })

	envPath := writeTempFile(t, ".env", key+"=wss://dotenv.example/realtime\n")
	missing := filepath.Join(t.TempDir(), "missing.env")

	if err := LoadEnv(missing, envPath, ""); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	path := writeTempFile(t, "config.yaml", `
api:
  ws_url: ${`+key+`}
credential:
  path: /tmp/creds.json
`)
	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.API.WSURL != "wss://dotenv.example/realtime" {
		t.Errorf("API.WSURL = %q", cfg.API.WSURL)
	}
}

func TestLoadEnvDoesNotOverride(t *testing.T) {
	const key = "BOOKINGSYNC_TEST_LEVEL"
	t.Setenv(key, "warn")

	envPath := writeTempFile(t, ".env", key+"=debug\n")
	if err := LoadEnv(envPath); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := os.Getenv(key); got != "warn" {
		t.Errorf("%s = %q, want warn", key, got)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
credential:
  path: /tmp/creds.json
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.API.RestURL != DefaultRestURL {
		t.Errorf("API.RestURL = %q, want default %q", cfg.API.RestURL, DefaultRestURL)
	}
	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want default %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Connection.InitialDelay != time.Second || cfg.Connection.Multiplier != 2 || cfg.Connection.MaxDelay != 30*time.Second {
		t.Errorf("backoff defaults = %v/%v/%v, want 1s/2/30s",
			cfg.Connection.InitialDelay, cfg.Connection.Multiplier, cfg.Connection.MaxDelay)
	}
	if cfg.Connection.Transport != DefaultTransport {
		t.Errorf("Connection.Transport = %q, want %q", cfg.Connection.Transport, DefaultTransport)
	}
	if cfg.Router.TypingWindow != 3*time.Second {
		t.Errorf("Router.TypingWindow = %v, want 3s", cfg.Router.TypingWindow)
	}
	if cfg.Saga.ReconcileInterval != 0 {
		t.Errorf("Saga.ReconcileInterval = %v, want disabled", cfg.Saga.ReconcileInterval)
	}
	if cfg.Credential.Key != DefaultCredentialKey {
		t.Errorf("Credential.Key = %q, want %q", cfg.Credential.Key, DefaultCredentialKey)
	}
	if cfg.API.RateBurst != 0 {
		t.Errorf("API.RateBurst = %d, want 0 with throttling disabled", cfg.API.RateBurst)
	}
	if cfg.Debug.Port != 0 {
		t.Errorf("Debug.Port = %d, want 0", cfg.Debug.Port)
	}
}

func TestValidate(t *testing.T) {
	valid := func() SyncConfig {
		c := Default()
		c.Credential.Path = "/tmp/creds.json"
		return *c
	}

	tests := []struct {
		name    string
		mutate  func(c *SyncConfig)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *SyncConfig) {},
			wantErr: "",
		},
		{
			name:    "missing credential path",
			mutate:  func(c *SyncConfig) { c.Credential.Path = "" },
			wantErr: "credential.path is required",
		},
		{
			name:    "ws url with http scheme",
			mutate:  func(c *SyncConfig) { c.API.WSURL = "https://api.example.com/ws" },
			wantErr: `api.ws_url must use scheme ws or wss, got "https"`,
		},
		{
			name:    "missing rest url",
			mutate:  func(c *SyncConfig) { c.API.RestURL = "" },
			wantErr: "api.rest_url is required",
		},
		{
			name:    "unknown transport",
			mutate:  func(c *SyncConfig) { c.Connection.Transport = "nhooyr" },
			wantErr: `connection.transport must be gorilla or coder, got "nhooyr"`,
		},
		{
			name:    "multiplier below one",
			mutate:  func(c *SyncConfig) { c.Connection.Multiplier = 0.5 },
			wantErr: "connection.multiplier must be >= 1, got 0.5",
		},
		{
			name: "max delay below initial",
			mutate: func(c *SyncConfig) {
				c.Connection.InitialDelay = 10 * time.Second
				c.Connection.MaxDelay = 5 * time.Second
			},
			wantErr: "connection.max_delay (5s) cannot be less than initial_delay (10s)",
		},
		{
			name:    "rate limit without burst",
			mutate:  func(c *SyncConfig) { c.API.RateLimit = 5 },
			wantErr: "api.rate_burst must be >= 1 when api.rate_limit is set",
		},
		{
			name:    "negative reconcile interval",
			mutate:  func(c *SyncConfig) { c.Saga.ReconcileInterval = -time.Second },
			wantErr: "saga.reconcile_interval must be >= 0",
		},
		{
			name:    "bad log level",
			mutate:  func(c *SyncConfig) { c.Logging.Level = "verbose" },
			wantErr: `logging.level must be one of debug, info, warn, error, got "verbose"`,
		},
		{
			name:    "bad log format",
			mutate:  func(c *SyncConfig) { c.Logging.Format = "xml" },
			wantErr: `logging.format must be text or json, got "xml"`,
		},
		{
			name:    "debug port out of range",
			mutate:  func(c *SyncConfig) { c.Debug.Port = 70000 },
			wantErr: "debug.port must be between 0 and 65535, got 70000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
