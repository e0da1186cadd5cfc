// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
	"your-secret-key-here",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"LIBRIS_DB_PATH" envDefault:"./data/libris.db"`
	SessionSecret string `env:"LIBRIS_SESSION_SECRET,required"`
	ServerHost    string `env:"LIBRIS_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"LIBRIS_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"LIBRIS_ENV" envDefault:"development"`
	LogLevel      string `env:"LIBRIS_LOG_LEVEL" envDefault:"info"`

	// Credential bootstrap: encrypted credentials file is preferred, with the
	// plain DB_* environment variables as fallback (see internal/keystore).
	CredentialsFile string `env:"LIBRIS_CREDENTIALS_FILE" envDefault:"./encrypted_credentials.json"`
	CredentialsKey  string `env:"LIBRIS_CREDENTIALS_KEY"` // base64, 32 bytes decoded

	// Seeding configuration
	DoSeed bool `env:"LIBRIS_DO_SEED" envDefault:"false"` // Enable demo book seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("LIBRIS_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("LIBRIS_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("LIBRIS_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
