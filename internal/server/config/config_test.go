package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, ":8080", c.Addr)
	assert.Empty(t, c.DatabaseDSN)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, 30*time.Minute, c.TokenTTL)
	assert.Equal(t, 10*time.Minute, c.RotateWindow)
	assert.True(t, c.RequireVerification)
	assert.Equal(t, 10*time.Minute, c.CodeTTL)
	assert.Equal(t, "info", c.LogLevel)
	require.NoError(t, c.Validate())
}

func TestLoad_NoArgsGivesDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, defaults(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "empty secret", mutate: func(c *Config) { c.SecretKey = "" }},
		{name: "zero token ttl", mutate: func(c *Config) { c.TokenTTL = 0 }},
		{name: "negative code ttl", mutate: func(c *Config) { c.CodeTTL = -time.Second }},
		{name: "rotate window as long as ttl", mutate: func(c *Config) { c.RotateWindow = c.TokenTTL }},
		{name: "negative rotate window", mutate: func(c *Config) { c.RotateWindow = -time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoad_InvalidFlagsFail(t *testing.T) {
	_, err := Load([]string{"-t", "5", "-r", "10"})
	require.Error(t, err)
}
