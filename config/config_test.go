package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Service.Address)
	assert.Equal(t, 30*time.Second, cfg.Notify.KeepaliveInterval)
	assert.Equal(t, 5*time.Second, cfg.Client.RetryInterval)
	assert.Equal(t, 75*time.Second, cfg.Client.LivenessTimeout)
	assert.InDelta(t, 0.5, cfg.Client.Volume, 1e-9)
	assert.Equal(t, "memory", cfg.Broker.Driver)
	assert.Equal(t, "sse", cfg.Client.Transport)
}

func TestLoad_BareEnvironmentInMilliseconds(t *testing.T) {
	t.Setenv("RETRY_INTERVAL", "7000")
	t.Setenv("KEEPALIVE_INTERVAL", "10000")
	t.Setenv("VOLUME", "0.8")
	t.Setenv("SOUND_PATH", "/usr/share/sounds/reservation.oga")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 7*time.Second, cfg.Client.RetryInterval)
	assert.Equal(t, 10*time.Second, cfg.Notify.KeepaliveInterval)
	assert.Equal(t, 25*time.Second, cfg.Client.LivenessTimeout)
	assert.InDelta(t, 0.8, cfg.Client.Volume, 1e-9)
	assert.Equal(t, "/usr/share/sounds/reservation.oga", cfg.Client.SoundPath)
}

func TestLoad_FileAndFlags(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
service:
  address: ":9090"
notify:
  keepalive_interval: 15s
  buffer_size: 64
auth:
  mode: static
  tokens:
    - token: s3cret
      user_id: 0194a1c2-7b7e-7c1e-9d2a-3f5e6a7b8c9d
      name: Front Desk
      roles: [admin]
client:
  retry_interval: 2500
  liveness_timeout: 40s
`), 0o600))

	cfg, err := Load([]string{"--config_file", file, "--address", ":7070"})
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Service.Address, "flag wins over file")
	assert.Equal(t, 15*time.Second, cfg.Notify.KeepaliveInterval)
	assert.Equal(t, 64, cfg.Notify.BufferSize)
	assert.Equal(t, 2500*time.Millisecond, cfg.Client.RetryInterval)
	assert.Equal(t, 40*time.Second, cfg.Client.LivenessTimeout)
	require.Len(t, cfg.Auth.Tokens, 1)
	assert.Equal(t, "s3cret", cfg.Auth.Tokens[0].Token)
	assert.Equal(t, []string{"admin"}, cfg.Auth.Tokens[0].Roles)
	assert.Equal(t, file, cfg.File)
}

func TestLoad_ExtraFlagSet(t *testing.T) {
	extra := pflag.NewFlagSet("emit", pflag.ContinueOnError)
	kind := extra.String("kind", "SYSTEM", "")

	cfg, err := Load([]string{"--kind=RESERVATION_CREATED", "--headless", "--transport", "ws"}, extra)
	require.NoError(t, err)

	assert.Equal(t, "RESERVATION_CREATED", *kind)
	assert.True(t, cfg.Client.Headless)
	assert.Equal(t, "ws", cfg.Client.Transport)
}

func TestLoad_UnknownFlag(t *testing.T) {
	_, err := Load([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(nil)
		require.NoError(t, err)
		return cfg
	}

	t.Run("volume out of range", func(t *testing.T) {
		cfg := base()
		cfg.Client.Volume = 1.5
		assert.ErrorContains(t, cfg.Validate(), "client.volume")
	})

	t.Run("liveness must absorb one missed keepalive", func(t *testing.T) {
		cfg := base()
		cfg.Client.LivenessTimeout = cfg.Notify.KeepaliveInterval + time.Second
		assert.ErrorContains(t, cfg.Validate(), "liveness_timeout")
	})

	t.Run("amqp requires url", func(t *testing.T) {
		cfg := base()
		cfg.Broker.Driver = "amqp"
		assert.ErrorContains(t, cfg.Validate(), "broker.url")
	})

	t.Run("unknown transport", func(t *testing.T) {
		cfg := base()
		cfg.Client.Transport = "carrier-pigeon"
		assert.ErrorContains(t, cfg.Validate(), "client.transport")
	})

	t.Run("retry floor must be positive", func(t *testing.T) {
		cfg := base()
		cfg.Client.RetryInterval = 0
		assert.ErrorContains(t, cfg.Validate(), "retry_interval")
	})
}
