package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreFile, cfg.Session.Store)
	assert.Equal(t, 30*time.Minute, cfg.Session.DemoTTL)
	assert.Equal(t, DemoSourceLocal, cfg.Session.DemoSource)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 4, cfg.Hive.ReadingWorkers)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"SESSION_STORE":       "redis",
		"REDIS_ADDR":          "cache:6379",
		"SESSION_DEMO_TTL":    "90s",
		"SESSION_DEMO_SOURCE": "remote",
		"BACKEND_URL":         "http://api:9000",
		"ENV":                 "production",
	}))
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.Session.Store)
	assert.Equal(t, 90*time.Second, cfg.Session.DemoTTL)
	assert.Equal(t, DemoSourceRemote, cfg.Session.DemoSource)
	assert.Equal(t, "http://api:9000", cfg.Backend.BaseURL)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown store":       {"SESSION_STORE": "sqlite"},
		"redis without addr":  {"SESSION_STORE": "redis"},
		"unknown demo source": {"SESSION_DEMO_SOURCE": "magic"},
		"zero ttl":            {"SESSION_DEMO_TTL": "0s"},
		"admin sans password": {"ADMIN_EMAIL": "root@example.com"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(context.Background(), envconfig.MapLookuper(env))
			assert.Error(t, err)
		})
	}
}
