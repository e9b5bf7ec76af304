// Package config loads tripmate server settings from a file and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server      ServerConfig      `toml:"server" yaml:"server" json:"server"`
	Database    DatabaseConfig    `toml:"database" yaml:"database" json:"database"`
	Auth        AuthConfig        `toml:"auth" yaml:"auth" json:"auth"`
	Hub         HubConfig         `toml:"hub" yaml:"hub" json:"hub"`
	Idempotency IdempotencyConfig `toml:"idempotency" yaml:"idempotency" json:"idempotency"`
	Logging     LoggingConfig     `toml:"logging" yaml:"logging" json:"logging"`
}

type ServerConfig struct {
	Addr       string `toml:"addr" yaml:"addr" json:"addr"`
	StaticPath string `toml:"static_path" yaml:"static_path" json:"static_path"`

	// AllowedOrigins lists browser origins for CORS and websocket upgrades.
	// "*" allows any origin.
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins" json:"allowed_origins"`

	ShutdownTimeout Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `toml:"path" yaml:"path" json:"path"`
}

type AuthConfig struct {
	JWTSecret string   `toml:"jwt_secret" yaml:"jwt_secret" json:"jwt_secret"`
	TokenTTL  Duration `toml:"token_ttl" yaml:"token_ttl" json:"token_ttl"`
}

type HubConfig struct {
	// SendBuffer is the per-connection outbound queue length. Messages to a
	// connection with a full queue are dropped.
	SendBuffer int `toml:"send_buffer" yaml:"send_buffer" json:"send_buffer"`

	// VerifyTokens makes the hub check the JWT in auth events instead of
	// trusting the user id the client sends.
	VerifyTokens bool `toml:"verify_tokens" yaml:"verify_tokens" json:"verify_tokens"`

	MaxMessageBytes int64 `toml:"max_message_bytes" yaml:"max_message_bytes" json:"max_message_bytes"`
}

type IdempotencyConfig struct {
	// Path of the bolt file. Empty disables Idempotency-Key support.
	Path string   `toml:"path" yaml:"path" json:"path"`
	TTL  Duration `toml:"ttl" yaml:"ttl" json:"ttl"`
}

type LoggingConfig struct {
	Level string `toml:"level" yaml:"level" json:"level"`
}

// Duration is a time.Duration written as a string ("90s", "24h") in config files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			StaticPath:      "../frontend/static",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Database: DatabaseConfig{Path: "./data/tripmate.db"},
		Auth:     AuthConfig{TokenTTL: Duration{24 * time.Hour}},
		Hub: HubConfig{
			SendBuffer:      64,
			VerifyTokens:    true,
			MaxMessageBytes: 64 << 10,
		},
		Idempotency: IdempotencyConfig{
			Path: "./data/idempotency.db",
			TTL:  Duration{24 * time.Hour},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the configuration like Read and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Read reads the file at path on top of the defaults and applies environment
// overrides. A missing file, or an empty path, yields the defaults. Commands that
// only touch the database use Read so they run without a JWT secret.
func Read(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TRIPMATE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("STATIC_PATH"); v != "" {
		c.Server.StaticPath = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv("IDEMPOTENCY_PATH"); ok {
		c.Idempotency.Path = v
	}
}
