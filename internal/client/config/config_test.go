package config

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/vutto/internal/client/credstore"
	"github.com/dmitrijs2005/vutto/internal/client/expiry"
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

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, credstore.BackendSQLite, c.StoreBackend)
	assert.Equal(t, 5*time.Second, c.BootstrapTimeout)
	assert.Equal(t, 5*time.Minute, c.RenewInterval)
	assert.Equal(t, 10*time.Minute, c.RenewWindow)
	assert.Equal(t, 5*time.Minute, c.GraceWindow)
	assert.Equal(t, 10*time.Minute, c.CodeTTL)
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
		want   error
	}{
		{name: "unknown backend", mutate: func(c *Config) { c.StoreBackend = "etcd" }},
		{name: "renew inside grace", mutate: func(c *Config) { c.RenewWindow = c.GraceWindow }, want: expiry.ErrWindowOrder},
		{name: "zero bootstrap timeout", mutate: func(c *Config) { c.BootstrapTimeout = 0 }},
		{name: "negative code ttl", mutate: func(c *Config) { c.CodeTTL = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestStoreOptions(t *testing.T) {
	c := defaults()
	c.StoreBackend = credstore.BackendRedis
	c.RedisAddr = "cache:6379"

	assert.Equal(t, credstore.Options{
		Backend:     credstore.BackendRedis,
		DBPath:      "vutto.db",
		RedisAddr:   "cache:6379",
		RedisPrefix: "vutto",
	}, c.StoreOptions())
}
