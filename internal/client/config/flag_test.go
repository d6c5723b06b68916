package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "https://api.example.com", "-store", "redis", "-db", "/tmp/x.db", "-redis", "cache:6379", "-log-level", "debug"},
			mutate: func(c *Config) {
				c.ServerURL = "https://api.example.com"
				c.StoreBackend = "redis"
				c.DBPath = "/tmp/x.db"
				c.RedisAddr = "cache:6379"
				c.LogLevel = "debug"
			},
		},
		{
			name:   "unknown flags ignored",
			args:   []string{"-x", "1", "-store=memory", "-verbose"},
			mutate: func(c *Config) { c.StoreBackend = "memory" },
		},
		{
			name:    "missing value",
			args:    []string{"-a"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := defaults()
			err := parseFlags(got, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			want := defaults()
			tt.mutate(want)
			assert.Empty(t, cmp.Diff(want, got))
		})
	}
}

func TestLoad_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"server_url":    "http://from-json:8080",
		"store_backend": "memory",
	})

	cfg, err := Load([]string{"-c", path, "-a", "http://from-flag:8080"})
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:8080", cfg.ServerURL)
	assert.Equal(t, "memory", cfg.StoreBackend)
}

func TestLoad_InvalidResult(t *testing.T) {
	_, err := Load([]string{"-store", "floppy"})
	require.Error(t, err)
}
