package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	dserrors "github.com/skylink-net/skylinkctl/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skylink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const minimalConfig = `version: 1
service:
  name: skylinkvpn
  image: gcr.io/my-project/skylink:latest
`

func TestLoad_MinimalAppliesDefaults(t *testing.T) {
	cfg := &Config{Path: writeConfig(t, minimalConfig), Logger: testLogger()}
	require.NoError(t, cfg.Load())

	def := cfg.Definition
	assert.Equal(t, "skylinkvpn", def.Service.Name)
	assert.Equal(t, DefaultRegion, def.Service.Region)
	assert.Equal(t, DefaultMemory, def.Service.Memory)
	assert.Equal(t, DefaultCPU, def.Service.CPU)
	assert.Equal(t, DefaultTimeoutSeconds, def.Service.TimeoutSeconds)
	assert.Equal(t, DefaultPort, def.Service.Port)
	assert.Equal(t, DefaultMinInstances, def.Service.MinInstances)
	assert.Equal(t, "trojan", def.Protocol)
	assert.Equal(t, "@every 6h", def.Rotation.Schedule)
	assert.False(t, def.HasNotifications())
}

func TestLoad_FullConfig(t *testing.T) {
	cfg := &Config{Path: writeConfig(t, `version: 1
protocol: vless-grpc
service:
  name: skylinkvpn
  image: gcr.io/my-project/skylink:latest
  region: europe-west1
  memory: 1Gi
  cpu: "2"
  timeout_seconds: 900
  port: 9443
  min_instances: 2
rotation:
  schedule: "@every 1h"
  log_path: /var/log/skylink.log
notifications:
  telegram:
    bot_token: env://MY_BOT_TOKEN
    chat_ids: ["-1001234567890", "987654321"]
  webhooks:
    - name: ops
      url: https://hooks.example.com/skylink
      method: PUT
`), Logger: testLogger()}
	require.NoError(t, cfg.Load())

	def := cfg.Definition
	assert.Equal(t, "vless-grpc", def.Protocol)
	assert.Equal(t, "europe-west1", def.Service.Region)
	assert.Equal(t, "1Gi", def.Service.Memory)
	assert.Equal(t, 900, def.Service.TimeoutSeconds)
	assert.Equal(t, "@every 1h", def.Rotation.Schedule)
	assert.Equal(t, "/var/log/skylink.log", def.Rotation.LogPath)
	require.True(t, def.HasNotifications())
	assert.Equal(t, []string{"-1001234567890", "987654321"}, def.Notifications.Telegram.ChatIDs)
	assert.Equal(t, "PUT", def.Notifications.Webhooks[0].Method)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg := &Config{Path: filepath.Join(t.TempDir(), "absent.yaml"), Logger: testLogger()}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	cfg := &Config{Path: writeConfig(t, `version: 7
service:
  name: skylinkvpn
  image: gcr.io/p/i
`), Logger: testLogger()}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestLoad_SchemaRejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "bad service name",
			content: `version: 1
service:
  name: Not_A_Valid_Name
  image: gcr.io/p/i
`,
		},
		{
			name: "unknown protocol",
			content: `version: 1
protocol: shadowsocks
service:
  name: skylinkvpn
  image: gcr.io/p/i
`,
		},
		{
			name: "unknown top-level key",
			content: `version: 1
service:
  name: skylinkvpn
  image: gcr.io/p/i
tunnels: []
`,
		},
		{
			name: "port out of range",
			content: `version: 1
service:
  name: skylinkvpn
  image: gcr.io/p/i
  port: 70000
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Path: writeConfig(t, tt.content), Logger: testLogger()}
			assert.Error(t, cfg.Load())
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-secret")
	t.Setenv("TELEGRAM_CHAT_ID", "-100111, 222 ,")

	cfg := &Config{Path: writeConfig(t, minimalConfig), Logger: testLogger()}
	require.NoError(t, cfg.Load())

	require.True(t, cfg.Definition.HasNotifications())
	tg := cfg.Definition.Notifications.Telegram
	assert.Equal(t, "env://TELEGRAM_BOT_TOKEN", tg.BotToken)
	assert.Equal(t, []string{"-100111", "222"}, tg.ChatIDs)
}

func TestResolveBotToken(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()

	t.Run("literal", func(t *testing.T) {
		token, err := ResolveBotToken(ctx, "123456:ABC-literal", logger)
		require.NoError(t, err)
		defer token.Destroy()

		var got string
		require.NoError(t, token.Reveal(func(secret []byte) error {
			got = string(secret)
			return nil
		}))
		assert.Equal(t, "123456:ABC-literal", got)
	})

	t.Run("env reference", func(t *testing.T) {
		t.Setenv("SKYLINK_TEST_TOKEN", "123456:ABC-env")
		token, err := ResolveBotToken(ctx, "env://SKYLINK_TEST_TOKEN", logger)
		require.NoError(t, err)
		defer token.Destroy()

		var got string
		require.NoError(t, token.Reveal(func(secret []byte) error {
			got = string(secret)
			return nil
		}))
		assert.Equal(t, "123456:ABC-env", got)
	})

	t.Run("env reference unset", func(t *testing.T) {
		_, err := ResolveBotToken(ctx, "env://SKYLINK_TEST_UNSET", logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SKYLINK_TEST_UNSET")
	})

	t.Run("keyring", func(t *testing.T) {
		keyring.MockInit()
		require.NoError(t, keyring.Set(KeyringService, KeyringAccount, "123456:ABC-keyring"))

		token, err := ResolveBotToken(ctx, "keyring://", logger)
		require.NoError(t, err)
		defer token.Destroy()

		var got string
		require.NoError(t, token.Reveal(func(secret []byte) error {
			got = string(secret)
			return nil
		}))
		assert.Equal(t, "123456:ABC-keyring", got)
	})

	t.Run("malformed secret manager reference", func(t *testing.T) {
		_, err := ResolveBotToken(ctx, "gcp-sm://just-a-project", logger)
		require.Error(t, err)
		var cfgErr dserrors.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("empty reference", func(t *testing.T) {
		_, err := ResolveBotToken(ctx, "", logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "login")
	})
}
