package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("AQUAWIZ_USERNAME", "reef@example.com")
	t.Setenv("AQUAWIZ_PASSWORD", "hunter2")
	t.Setenv("AQUAWIZ_DEVICE_ID", "AW-1234")
	t.Setenv("POSTGRES_PASSWORD", "secret")
}

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, DefaultUpdateInterval, cfg.AquaWiz.UpdateInterval)
		assert.Equal(t, "localhost:6379", cfg.Redis.Address())
		assert.True(t, cfg.Cache.Enabled)
		assert.Equal(t, time.Hour, cfg.Cache.SnapshotTTL)
	})

	t.Run("missing credentials rejected", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("AQUAWIZ_USERNAME", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AQUAWIZ_USERNAME")
	})

	t.Run("interval accepts plain seconds", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("AQUAWIZ_UPDATE_INTERVAL", "120")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 2*time.Minute, cfg.AquaWiz.UpdateInterval)
	})

	t.Run("interval accepts duration string", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("AQUAWIZ_UPDATE_INTERVAL", "15m")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, cfg.AquaWiz.UpdateInterval)
	})

	t.Run("interval below minimum rejected", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("AQUAWIZ_UPDATE_INTERVAL", "30")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AQUAWIZ_UPDATE_INTERVAL")
	})

	t.Run("interval above maximum rejected", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("AQUAWIZ_UPDATE_INTERVAL", "2h")

		_, err := Load()
		require.Error(t, err)
	})
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "aquawiz",
		Password: "secret",
		Name:     "aquawiz",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=aquawiz password=secret dbname=aquawiz sslmode=disable",
		cfg.DSN())
}
