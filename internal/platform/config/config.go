// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, TokenService) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Vendra API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Token signing. The two secrets MUST differ — compromise of one token
	// class's key must not allow forging the other class.
	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET,required"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET,required"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"1h"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// Brute-force lockout
	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutWindow    time.Duration `env:"LOCKOUT_WINDOW"    envDefault:"15m"`

	// LockoutByAccount additionally tracks failures per account, so an
	// attacker rotating IPs is still slowed down. Off by default because it
	// changes observable behavior for shared accounts.
	LockoutByAccount bool `env:"LOCKOUT_BY_ACCOUNT" envDefault:"false"`

	// RefreshRotation rotates the refresh token on every refresh and unmaps
	// the old one. Off by default; turning it on changes the client contract
	// (clients must store the newest refresh token each time).
	RefreshRotation bool `env:"REFRESH_ROTATION" envDefault:"false"`

	// Password hashing and strength policy
	BcryptCost            int  `env:"BCRYPT_COST"              envDefault:"12"`
	PasswordMinLength     int  `env:"PASSWORD_MIN_LENGTH"      envDefault:"8"`
	PasswordRequireMixed  bool `env:"PASSWORD_REQUIRE_MIXED"   envDefault:"true"`
	PasswordRequireDigit  bool `env:"PASSWORD_REQUIRE_DIGIT"   envDefault:"true"`
	PasswordRequireSymbol bool `env:"PASSWORD_REQUIRE_SYMBOL"  envDefault:"true"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, fmt.Errorf("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	// The refresh TTL bounds session life. A shorter refresh TTL than access
	// TTL would leave sessions expiring under still-valid access tokens.
	if cfg.RefreshTokenTTL < cfg.AccessTokenTTL {
		return nil, fmt.Errorf("config: REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL")
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
