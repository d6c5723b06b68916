// Package config loads runtime configuration for the vutto CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string          base URL of the REST API
//	-store string      sqlite, redis or memory
//	-db string         SQLite file path
//	-redis string      Redis address
//	-log-level string  debug, info, warn or error
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "5m"
// or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "store_backend": "sqlite",
//	  "db_path": "vutto.db",
//	  "redis_addr": "127.0.0.1:6379",
//	  "redis_prefix": "vutto",
//	  "bootstrap_timeout": "5s",
//	  "renew_interval": "5m",
//	  "renew_window": "10m",
//	  "grace_window": "5m",
//	  "code_ttl": "10m",
//	  "log_level": "info"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
