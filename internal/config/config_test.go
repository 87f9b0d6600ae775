package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(vars map[string]string) (Config, error) {
	return Parse(env.Options{Environment: vars})
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := parse(map[string]string{"BACKEND_URL": "http://backend:8000"})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.CookieSecure)
}

func TestParse_BackendURLRequired(t *testing.T) {
	_, err := parse(map[string]string{})
	assert.Error(t, err)
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := parse(map[string]string{
		"BACKEND_URL":  "https://api.example.com",
		"STORE_DRIVER": "redis",
		"REDIS_URL":    "redis://localhost:6379/1",
		"LOG_LEVEL":    "debug",
		"LOG_FORMAT":   "text",
		"SESSION_TTL":  "1h",
	})
	require.NoError(t, err)

	assert.Equal(t, DriverRedis, cfg.StoreDriver)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "sqlite"}},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}},
		{"redis without url", map[string]string{"STORE_DRIVER": "redis"}},
		{"zero ttl", map[string]string{"SESSION_TTL": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.vars["BACKEND_URL"] = "http://backend:8000"
			_, err := parse(tt.vars)
			assert.Error(t, err)
		})
	}
}
