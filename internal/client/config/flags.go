package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/vutto/internal/flagx"
)

var knownFlags = []string{"-a", "-store", "-db", "-redis", "-log-level"}

// parseFlags overlays cfg with command-line flags.
//
// Supported flags:
//
//	-a string          base URL of the REST API
//	-store string      credential store: sqlite, redis or memory
//	-db string         SQLite file path
//	-redis string      Redis address
//	-log-level string  debug, info, warn or error
//
// Only the flags above are looked at; everything else in args is ignored.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("vutto", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the API server")
	fs.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "credential store: sqlite, redis or memory")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database file")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	return fs.Parse(flagx.FilterArgs(args, knownFlags))
}
