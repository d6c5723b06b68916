package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/vutto/internal/flagx"
)

var knownFlags = []string{"-a", "-d", "-s", "-t", "-r", "-verify", "-log-level"}

// parseFlags overlays cfg with command-line flags.
//
// Supported flags (short forms):
//
//	-a string          bind address (e.g., ":8080")
//	-d string          PostgreSQL DSN (empty: in-memory)
//	-s string          JWT HMAC secret key
//	-t int             token validity, minutes
//	-r int             rotate window, minutes
//	-verify bool       require e-mail verification (use -verify=false to disable)
//	-log-level string  debug, info, warn or error
//
// Duration flags are accepted as integers in minutes.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("authstub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	ttl := fs.Int("t", int(cfg.TokenTTL.Minutes()), "token validity (in minutes)")
	rotate := fs.Int("r", int(cfg.RotateWindow.Minutes()), "rotate window (in minutes)")
	fs.BoolVar(&cfg.RequireVerification, "verify", cfg.RequireVerification, "require e-mail verification")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	// unset duration flags keep whatever JSON or defaults put there
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.TokenTTL = time.Duration(*ttl) * time.Minute
		case "r":
			cfg.RotateWindow = time.Duration(*rotate) * time.Minute
		}
	})
	return nil
}
