package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, 10, config.Alerting.CheckIntervalSeconds)
	assert.Equal(t, 256, config.Alerting.QueueSize)
	assert.False(t, config.NATS.Enabled)
	assert.False(t, config.Retention.Enabled, "retention must be opt-in")
	assert.Equal(t, int64(1000), config.RateLimit.RequestsPerMinute)
}

func TestLoadEnvPrecedence(t *testing.T) {
	os.Setenv("SOC_PORT", "7777")
	os.Setenv("SOC_LOG_LEVEL", "warn")
	defer func() {
		os.Unsetenv("SOC_PORT")
		os.Unsetenv("SOC_LOG_LEVEL")
	}()

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, config.Port)
	assert.Equal(t, "warn", config.LogLevel)
}

func TestLoadShortFormEnvVars(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	os.Setenv("NATS_URL", "nats://bus:4222")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("NATS_URL")
	}()

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://test:test@db:5432/test", config.Database.URL)
	assert.Equal(t, "nats://bus:4222", config.NATS.URL)
	assert.True(t, config.NATS.Enabled, "setting NATS_URL enables intake")
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		c, err := Load()
		require.NoError(t, err)
		return c
	}

	t.Run("rejects bad port", func(t *testing.T) {
		c := base()
		c.Port = 0
		assert.Error(t, validateConfig(c))
	})

	t.Run("rejects bad log level", func(t *testing.T) {
		c := base()
		c.LogLevel = "verbose"
		assert.Error(t, validateConfig(c))
	})

	t.Run("rejects bad environment", func(t *testing.T) {
		c := base()
		c.Environment = "qa"
		assert.Error(t, validateConfig(c))
	})

	t.Run("rejects enabled cache without addr", func(t *testing.T) {
		c := base()
		c.Cache.Enabled = true
		c.Cache.Addr = ""
		assert.Error(t, validateConfig(c))
	})

	t.Run("rejects zero check interval", func(t *testing.T) {
		c := base()
		c.Alerting.CheckIntervalSeconds = 0
		assert.Error(t, validateConfig(c))
	})

	t.Run("rejects enabled retention without window", func(t *testing.T) {
		c := base()
		c.Retention.Enabled = true
		c.Retention.Days = 0
		assert.Error(t, validateConfig(c))
	})
}

func BenchmarkConfigLoad(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Load(); err != nil {
			b.Fatal(err)
		}
	}
}
