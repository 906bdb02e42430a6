package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClientConfig_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	for _, k := range []string{"RIDESHARE_API_URL", "RIDESHARE_TIMEOUT", "RIDESHARE_POLL_INTERVAL", "RIDESHARE_STORE", "RIDESHARE_STORE_DIR", "RIDESHARE_KAFKA_BROKERS", "LOG_LEVEL", "RIDESHARE_DROPDOWN_SIZE"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 5, cfg.DropdownSize)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, "/tmp/xdg/rideshare", cfg.StoreDir)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadClientConfig_Overrides(t *testing.T) {
	t.Setenv("RIDESHARE_API_URL", "https://rides.example.com/api")
	t.Setenv("RIDESHARE_TIMEOUT", "3s")
	t.Setenv("RIDESHARE_POLL_INTERVAL", "250ms")
	t.Setenv("RIDESHARE_STORE", "Redis")
	t.Setenv("RIDESHARE_KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://rides.example.com/api", cfg.APIURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadClientConfig_JoinsErrors(t *testing.T) {
	t.Setenv("RIDESHARE_TIMEOUT", "soon")
	t.Setenv("RIDESHARE_POLL_INTERVAL", "-1s")
	t.Setenv("RIDESHARE_STORE", "postgres")
	t.Setenv("RIDESHARE_PG_DSN", "")

	_, err := LoadClientConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid RIDESHARE_TIMEOUT")
	assert.Contains(t, err.Error(), "RIDESHARE_POLL_INTERVAL must be > 0")
	assert.Contains(t, err.Error(), "RIDESHARE_PG_DSN is required")
}

func TestLoadStubConfig(t *testing.T) {
	t.Setenv("STUB_ADDR", ":9999")
	t.Setenv("STUB_JWT_KEY", "k")
	t.Setenv("STUB_ACCESS_TTL", "5m")

	cfg, err := LoadStubConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "k", cfg.JWTKey)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)

	t.Setenv("STUB_ACCESS_TTL", "0s")
	_, err = LoadStubConfig()
	require.Error(t, err)
}

func TestSplitAndTrim(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, splitAndTrim("a, b,,"))
	assert.Empty(t, splitAndTrim(" , "))
}
