package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/vutto/internal/flagx"
	"github.com/dmitrijs2005/vutto/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration so they may be strings like "5m" or integer nanoseconds.
// Absent fields leave the current value alone.
type JsonConfig struct {
	ServerURL        string          `json:"server_url"`
	StoreBackend     string          `json:"store_backend"`
	DBPath           string          `json:"db_path"`
	RedisAddr        string          `json:"redis_addr"`
	RedisPrefix      string          `json:"redis_prefix"`
	BootstrapTimeout *timex.Duration `json:"bootstrap_timeout"`
	RenewInterval    *timex.Duration `json:"renew_interval"`
	RenewWindow      *timex.Duration `json:"renew_window"`
	GraceWindow      *timex.Duration `json:"grace_window"`
	CodeTTL          *timex.Duration `json:"code_ttl"`
	LogLevel         string          `json:"log_level"`
}

// parseJson overlays cfg with the JSON file named by -c/-config in args.
// Without such a flag it does nothing.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.StoreBackend, jc.StoreBackend)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.RedisPrefix, jc.RedisPrefix)
	setString(&cfg.LogLevel, jc.LogLevel)

	setDuration(&cfg.BootstrapTimeout, jc.BootstrapTimeout)
	setDuration(&cfg.RenewInterval, jc.RenewInterval)
	setDuration(&cfg.RenewWindow, jc.RenewWindow)
	setDuration(&cfg.GraceWindow, jc.GraceWindow)
	setDuration(&cfg.CodeTTL, jc.CodeTTL)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
