package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/vutto/internal/client/credstore"
	"github.com/dmitrijs2005/vutto/internal/client/expiry"
)

// Config holds runtime settings for the vutto CLI.
//
// Fields:
//   - ServerURL: base URL of the marketplace REST API.
//   - StoreBackend, DBPath, RedisAddr, RedisPrefix: where credentials persist.
//   - BootstrapTimeout: bound on the start-up profile check.
//   - RenewInterval, RenewWindow, GraceWindow: session freshness policy.
//   - CodeTTL: verification code lifetime and resend lock.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerURL        string
	StoreBackend     string
	DBPath           string
	RedisAddr        string
	RedisPrefix      string
	BootstrapTimeout time.Duration
	RenewInterval    time.Duration
	RenewWindow      time.Duration
	GraceWindow      time.Duration
	CodeTTL          time.Duration
	LogLevel         string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.StoreBackend = credstore.BackendSQLite
	c.DBPath = "vutto.db"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisPrefix = "vutto"
	c.BootstrapTimeout = 5 * time.Second
	c.RenewInterval = 5 * time.Minute
	c.RenewWindow = expiry.DefaultRenewWindow
	c.GraceWindow = expiry.DefaultGraceWindow
	c.CodeTTL = 10 * time.Minute
	c.LogLevel = "info"
}

// Validate rejects settings the session core cannot run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case credstore.BackendSQLite, credstore.BackendRedis, credstore.BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.RenewWindow <= c.GraceWindow {
		return expiry.ErrWindowOrder
	}
	if c.BootstrapTimeout <= 0 || c.RenewInterval <= 0 || c.CodeTTL <= 0 {
		return fmt.Errorf("timeouts and intervals must be positive")
	}
	return nil
}

// StoreOptions maps the store settings onto credstore.Options.
func (c *Config) StoreOptions() credstore.Options {
	return credstore.Options{
		Backend:     c.StoreBackend,
		DBPath:      c.DBPath,
		RedisAddr:   c.RedisAddr,
		RedisPrefix: c.RedisPrefix,
	}
}

// Load builds a Config from defaults, then the JSON file named by -c/-config
// (if any), then flags. Later sources take precedence over earlier ones.
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
