package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	want := Default()
	want.Auth.JWTSecret = "s3cret"
	assert.Equal(t, want, cfg)
}

func TestLoad_Formats(t *testing.T) {
	files := map[string]string{
		"config.toml": `
[server]
addr = ":9000"
allowed_origins = ["https://trips.example.com"]

[auth]
jwt_secret = "from-file"
token_ttl = "2h"

[hub]
send_buffer = 8
verify_tokens = false

[idempotency]
ttl = "30m"
`,
		"config.yaml": `
server:
  addr: ":9000"
  allowed_origins: ["https://trips.example.com"]
auth:
  jwt_secret: from-file
  token_ttl: 2h
hub:
  send_buffer: 8
  verify_tokens: false
idempotency:
  ttl: 30m
`,
		"config.json": `{
  "server": {"addr": ":9000", "allowed_origins": ["https://trips.example.com"]},
  "auth": {"jwt_secret": "from-file", "token_ttl": "2h"},
  "hub": {"send_buffer": 8, "verify_tokens": false},
  "idempotency": {"ttl": "30m"}
}`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, name, content))
			require.NoError(t, err)

			assert.Equal(t, ":9000", cfg.Server.Addr)
			assert.Equal(t, []string{"https://trips.example.com"}, cfg.Server.AllowedOrigins)
			assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
			assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL.Duration)
			assert.Equal(t, 8, cfg.Hub.SendBuffer)
			assert.False(t, cfg.Hub.VerifyTokens)
			assert.Equal(t, 30*time.Minute, cfg.Idempotency.TTL.Duration)

			// untouched settings keep their defaults
			assert.Equal(t, Default().Database.Path, cfg.Database.Path)
			assert.Equal(t, Default().Hub.MaxMessageBytes, cfg.Hub.MaxMessageBytes)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "config.ini", "addr=:1"))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(writeFile(t, "config.toml", "[server\naddr="))
	assert.ErrorContains(t, err, "decode TOML")

	_, err = Load(writeFile(t, "config.yaml", "auth:\n  token_ttl: soon\n"))
	assert.ErrorContains(t, err, "decode YAML")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TRIPMATE_ADDR", ":7070")
	t.Setenv("DB_PATH", "/var/lib/tripmate/db.sqlite")
	t.Setenv("STATIC_PATH", "/srv/static")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("IDEMPOTENCY_PATH", "")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "/var/lib/tripmate/db.sqlite", cfg.Database.Path)
	assert.Equal(t, "/srv/static", cfg.Server.StaticPath)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Empty(t, cfg.Idempotency.Path, "an empty IDEMPOTENCY_PATH disables the store")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Auth.JWTSecret = "secret"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, "auth.jwt_secret"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"empty database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"zero token ttl", func(c *Config) { c.Auth.TokenTTL = Duration{} }, "auth.token_ttl"},
		{"zero send buffer", func(c *Config) { c.Hub.SendBuffer = 0 }, "hub.send_buffer"},
		{"zero message size", func(c *Config) { c.Hub.MaxMessageBytes = 0 }, "hub.max_message_bytes"},
		{"zero idempotency ttl", func(c *Config) { c.Idempotency.TTL = Duration{} }, "idempotency.ttl"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}

	t.Run("idempotency ttl ignored when disabled", func(t *testing.T) {
		cfg := valid()
		cfg.Idempotency.Path = ""
		cfg.Idempotency.TTL = Duration{}
		assert.NoError(t, cfg.Validate())
	})
}

func TestRead_SkipsValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_PATH", "/tmp/tripmate-read.db")

	cfg, err := Read("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tripmate-read.db", cfg.Database.Path)
	assert.Error(t, cfg.Validate())
}
