package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplereader/simplereader/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.False(t, cfg.Devices.AllowNewDevices)
	assert.Equal(t, 10*time.Second, cfg.Push.Timeout)
	assert.Equal(t, 8, cfg.APNS.Concurrency)
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.PubSub.Enabled())
	assert.Equal(t, "admin", cfg.Auth.AdminUsername)
	assert.Equal(t, config.DefaultSigningKey, cfg.Auth.SigningKey)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("ALLOW_NEW_DEVICES", "true")
	t.Setenv("PUSH_TIMEOUT", "3s")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("PUBSUB_PROJECT_ID", "reader")
	t.Setenv("PUBSUB_TOPIC", "audit")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.True(t, cfg.Devices.AllowNewDevices)
	assert.Equal(t, 3*time.Second, cfg.Push.Timeout)
	assert.True(t, cfg.Database.Enabled())
	assert.True(t, cfg.PubSub.Enabled())
}

func TestLoad_YAMLFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yaml := "app:\n  port: \"7000\"\ndevices:\n  allow_new_devices: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("ALLOW_NEW_DEVICES", "false")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.App.Port)
	assert.False(t, cfg.Devices.AllowNewDevices)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yml"))

	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("APP_ENV", "production")
	t.Setenv("PUSH_TIMEOUT", "0s")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUSH_TIMEOUT")
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")
}
