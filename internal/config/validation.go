package config

import (
	"fmt"
	"strings"

	"github.com/devinvista/Trip-sub001/pkg/logging"
)

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid setting found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if c.Server.Addr == "" {
		add("server.addr", "must not be empty")
	}
	if c.Server.ShutdownTimeout.Duration < 0 {
		add("server.shutdown_timeout", "must not be negative")
	}
	if c.Database.Path == "" {
		add("database.path", "must not be empty")
	}
	if c.Auth.JWTSecret == "" {
		add("auth.jwt_secret", "must be set (or JWT_SECRET)")
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		add("auth.token_ttl", "must be positive")
	}
	if c.Hub.SendBuffer <= 0 {
		add("hub.send_buffer", "must be positive")
	}
	if c.Hub.MaxMessageBytes <= 0 {
		add("hub.max_message_bytes", "must be positive")
	}
	if c.Idempotency.Path != "" && c.Idempotency.TTL.Duration <= 0 {
		add("idempotency.ttl", "must be positive")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", err.Error())
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
