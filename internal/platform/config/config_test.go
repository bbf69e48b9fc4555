package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	unsetenv(t, "CITYCONNECT_ADDR", "STORE_DRIVER", "KAFKA_BROKERS", "SHUTDOWN_TIMEOUT", "REQUEST_TIMEOUT",
		"COMPLAINT_DEPARTMENT_SCOPE", "CITIZEN_ANNOUNCEMENT_SCOPE",
		"RATE_LIMIT_ENABLED", "RATE_LIMIT_READ_PER_WINDOW", "RATE_LIMIT_WRITE_PER_WINDOW", "RATE_LIMIT_WINDOW")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "all", cfg.Policy.ComplaintDepartmentScope)
	assert.Equal(t, "global", cfg.Policy.CitizenAnnouncementScope)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, RateLimitConfig{Enabled: true, ReadPerWindow: 120, WritePerWindow: 30, Window: time.Minute}, cfg.RateLimit)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CITYCONNECT_ADDR", ":9090")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/city.db")
	t.Setenv("KAFKA_BROKERS", "localhost:9092,localhost:9093")
	t.Setenv("COMPLAINT_DEPARTMENT_SCOPE", "assigned")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/city.db", cfg.Store.SQLitePath)
	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "assigned", cfg.Policy.ComplaintDepartmentScope)
}

func TestValidate(t *testing.T) {
	t.Run("postgres requires a database url", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")

		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("unknown driver is rejected", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")

		_, err := FromEnv()
		require.ErrorContains(t, err, "unknown STORE_DRIVER")
	})

	t.Run("request timeout must be positive", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("REQUEST_TIMEOUT", "0s")

		_, err := FromEnv()
		require.ErrorContains(t, err, "REQUEST_TIMEOUT")
	})

	t.Run("rate limit budgets cannot be negative", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("RATE_LIMIT_WRITE_PER_WINDOW", "-1")

		_, err := FromEnv()
		require.ErrorContains(t, err, "rate limit budgets")
	})

	t.Run("zero budget disables throttling", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("RATE_LIMIT_READ_PER_WINDOW", "0")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Zero(t, cfg.RateLimit.ReadPerWindow)
	})

	t.Run("rate limiting can be switched off", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("RATE_LIMIT_ENABLED", "false")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.False(t, cfg.RateLimit.Enabled)
	})
}

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}
