package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/vutto/internal/flagx"
	"github.com/dmitrijs2005/vutto/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. Durations use timex.Duration, so both "10m" and
// integer nanoseconds are accepted. Absent fields leave defaults alone.
type JsonConfig struct {
	Addr                string          `json:"addr"`
	DatabaseDSN         string          `json:"database_dsn"`
	SecretKey           string          `json:"secret_key"`
	TokenTTL            *timex.Duration `json:"token_ttl"`
	RotateWindow        *timex.Duration `json:"rotate_window"`
	RequireVerification *bool           `json:"require_verification"`
	CodeTTL             *timex.Duration `json:"code_ttl"`
	LogLevel            string          `json:"log_level"`
}

// parseJson overlays cfg with the JSON file named by -c/-config in args.
// Without such a flag nothing is loaded.
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

	if jc.Addr != "" {
		cfg.Addr = jc.Addr
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.SecretKey != "" {
		cfg.SecretKey = jc.SecretKey
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.RequireVerification != nil {
		cfg.RequireVerification = *jc.RequireVerification
	}
	setDuration(&cfg.TokenTTL, jc.TokenTTL)
	setDuration(&cfg.RotateWindow, jc.RotateWindow)
	setDuration(&cfg.CodeTTL, jc.CodeTTL)
	return nil
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
