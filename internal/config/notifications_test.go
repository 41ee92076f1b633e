package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylink-net/skylinkctl/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(false, true)
}

func TestBuildProviders_Empty(t *testing.T) {
	var cfg *NotificationConfig
	providers, err := cfg.BuildProviders(context.Background(), testLogger())
	require.NoError(t, err)
	assert.Empty(t, providers)
}

func TestBuildProviders_Telegram(t *testing.T) {
	t.Setenv("SKYLINK_TEST_BOT", "123456:ABC-def")

	cfg := &NotificationConfig{
		Telegram: &TelegramNotificationConfig{
			BotToken: "env://SKYLINK_TEST_BOT",
			ChatIDs:  []string{"-100123"},
		},
	}

	providers, err := cfg.BuildProviders(context.Background(), testLogger())
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "telegram", providers[0].Name())
}

func TestBuildProviders_TelegramWithoutChats(t *testing.T) {
	cfg := &NotificationConfig{
		Telegram: &TelegramNotificationConfig{BotToken: "123456:ABC"},
	}

	providers, err := cfg.BuildProviders(context.Background(), testLogger())
	require.NoError(t, err)
	assert.Empty(t, providers)
}

func TestBuildProviders_Webhook(t *testing.T) {
	cfg := &NotificationConfig{
		Webhooks: []WebhookNotificationConfig{
			{Name: "ops", URL: "https://hooks.example.com/skylink"},
		},
	}

	providers, err := cfg.BuildProviders(context.Background(), testLogger())
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "webhook:ops", providers[0].Name())
}

func TestBuildProviders_WebhookBadURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"relative", "/skylink"},
		{"no host", "https://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &NotificationConfig{
				Webhooks: []WebhookNotificationConfig{{Name: "bad", URL: tt.url}},
			}
			_, err := cfg.BuildProviders(context.Background(), testLogger())
			assert.Error(t, err)
		})
	}
}
