// Package config handles configuration for the auth stub server,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"errors"
	"os"
	"time"
)

// Config holds runtime settings for the auth stub.
//
// Fields:
//   - Addr: bind address for the REST API.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps everything in memory.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - TokenTTL: lifetime of an issued access token.
//   - RotateWindow: GET /profile hands out a fresh token once the presented
//     one expires within this window.
//   - RequireVerification: when set, registration is confirmed by an e-mailed
//     one-time code (logged by the stub) before a session is issued.
//   - CodeTTL: how long a verification code stays valid.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	Addr                string
	DatabaseDSN         string
	SecretKey           string
	TokenTTL            time.Duration
	RotateWindow        time.Duration
	RequireVerification bool
	CodeTTL             time.Duration
	LogLevel            string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret is insecure and must be overridden outside local runs.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.SecretKey = "secretKey"
	c.TokenTTL = 30 * time.Minute
	c.RotateWindow = 10 * time.Minute
	c.RequireVerification = true
	c.CodeTTL = 10 * time.Minute
	c.LogLevel = "info"
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("secret key must not be empty")
	}
	if c.TokenTTL <= 0 || c.CodeTTL <= 0 {
		return errors.New("token and code lifetimes must be positive")
	}
	if c.RotateWindow < 0 || c.RotateWindow >= c.TokenTTL {
		return errors.New("rotate window must be shorter than the token lifetime")
	}
	return nil
}

// Load builds a Config by applying defaults, then overlaying values from an
// optional JSON file and finally from command-line flags.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args. It panics on invalid configuration.
func LoadConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}
