package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Key store backends.
const (
	KeyStorePostgREST = "postgrest"
	KeyStoreSQLite    = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Supabase  SupabaseConfig  `toml:"supabase"`
	Vendor    VendorConfig    `toml:"vendor"`
	KeyStore  KeyStoreConfig  `toml:"keystore"`
	Relay     RelayConfig     `toml:"relay"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig holds the proxy HTTP listener configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" toml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" toml:"host"`
}

// SupabaseConfig holds identity provider and hosted key store settings.
// Empty values mean "not configured" and surface as configuration errors at
// request time rather than at startup.
type SupabaseConfig struct {
	URL            string `envconfig:"SUPABASE_URL" toml:"url"`
	AnonKey        string `envconfig:"SUPABASE_ANON_KEY" toml:"anon_key"`
	ServiceRoleKey string `envconfig:"SUPABASE_SERVICE_ROLE_KEY" toml:"service_role_key"`
}

// VendorConfig holds completion API settings.
type VendorConfig struct {
	URL     string   `envconfig:"OPENAI_URL" default:"https://api.openai.com/v1/chat/completions" toml:"url"`
	Model   string   `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini" toml:"model"`
	Timeout Duration `envconfig:"OPENAI_TIMEOUT" default:"60s" toml:"timeout"`
}

// KeyStoreConfig selects where per-user vendor keys live.
type KeyStoreConfig struct {
	Backend    string `envconfig:"KEYSTORE_BACKEND" default:"postgrest" toml:"backend"`
	SQLitePath string `envconfig:"KEYSTORE_SQLITE_PATH" default:"formfill.db" toml:"sqlite_path"`
	Secret     string `envconfig:"KEYSTORE_SECRET" toml:"secret"`
}

// RelayConfig holds relay daemon settings.
type RelayConfig struct {
	Host         string   `envconfig:"RELAY_HOST" default:"127.0.0.1" toml:"host"`
	Port         string   `envconfig:"RELAY_PORT" default:"8787" toml:"port"`
	ProxyURL     string   `envconfig:"PROXY_URL" default:"http://127.0.0.1:8000/functions/v1/llm-proxy" toml:"proxy_url"`
	ProxyTimeout Duration `envconfig:"PROXY_TIMEOUT" default:"60s" toml:"proxy_timeout"`
	SessionFile  string   `envconfig:"SESSION_FILE" default:"formfill-session.yaml" toml:"session_file"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled"`
	// GlobalRequestsPerSecond caps the whole proxy across clients; 0 is off.
	GlobalRequestsPerSecond int `envconfig:"RATE_LIMIT_GLOBAL_RPS" default:"0" toml:"global_requests_per_second"`
}

// Duration is a time.Duration that decodes from strings such as "60s" in
// both environment variables and TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Overlay applies the keys present in a TOML file on top of cfg.
func (c *Config) Overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return c.Validate()
}

// Validate rejects values that cannot work at all.
func (c *Config) Validate() error {
	switch c.KeyStore.Backend {
	case KeyStorePostgREST, KeyStoreSQLite:
	default:
		return fmt.Errorf("unknown key store backend %q", c.KeyStore.Backend)
	}
	if c.Vendor.Timeout <= 0 || c.Relay.ProxyTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Vendor: VendorConfig{
			URL:     "https://api.openai.com/v1/chat/completions",
			Model:   "gpt-4o-mini",
			Timeout: Duration(60 * time.Second),
		},
		KeyStore: KeyStoreConfig{
			Backend:    KeyStorePostgREST,
			SQLitePath: "formfill.db",
		},
		Relay: RelayConfig{
			Host:         "127.0.0.1",
			Port:         "8787",
			ProxyURL:     "http://127.0.0.1:8000/functions/v1/llm-proxy",
			ProxyTimeout: Duration(60 * time.Second),
			SessionFile:  "formfill-session.yaml",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}
