package config

import (
	"context"
	"net/url"
	"time"

	dserrors "github.com/skylink-net/skylinkctl/internal/errors"
	"github.com/skylink-net/skylinkctl/internal/logging"
	"github.com/skylink-net/skylinkctl/internal/rotation/notifications"
)

// NotificationConfig groups all announcement destinations.
type NotificationConfig struct {
	Telegram *TelegramNotificationConfig `yaml:"telegram,omitempty"`
	Webhooks []WebhookNotificationConfig `yaml:"webhooks,omitempty"`
}

// TelegramNotificationConfig configures the chat-bot destination.
type TelegramNotificationConfig struct {
	// BotToken is a secret reference: a literal token, env://VAR,
	// keyring://, or gcp-sm://project/secret[/version].
	BotToken string `yaml:"bot_token,omitempty"`

	ChatIDs []string `yaml:"chat_ids"`

	// Events filters which event types are announced. Empty means all.
	Events []string `yaml:"events,omitempty"`

	// APIBase overrides the Telegram API endpoint, used in tests.
	APIBase string `yaml:"api_base,omitempty"`

	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

// WebhookNotificationConfig configures a generic HTTP destination.
type WebhookNotificationConfig struct {
	Name            string            `yaml:"name"`
	URL             string            `yaml:"url"`
	Method          string            `yaml:"method,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	Events          []string          `yaml:"events,omitempty"`
	PayloadTemplate string            `yaml:"payload_template,omitempty"`
	TimeoutSeconds  int               `yaml:"timeout_seconds,omitempty"`
}

// BuildProviders resolves secret references and constructs the notification
// providers for every configured destination. A config with no destinations
// yields an empty slice, not an error.
func (n *NotificationConfig) BuildProviders(ctx context.Context, logger *logging.Logger) ([]notifications.Provider, error) {
	if n == nil {
		return nil, nil
	}

	providers := make([]notifications.Provider, 0, 1+len(n.Webhooks))

	if n.Telegram != nil && len(n.Telegram.ChatIDs) > 0 {
		provider, err := n.Telegram.buildProvider(ctx, logger)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}

	for _, hook := range n.Webhooks {
		provider, err := hook.buildProvider(ctx)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}

	return providers, nil
}

func (t *TelegramNotificationConfig) buildProvider(ctx context.Context, logger *logging.Logger) (notifications.Provider, error) {
	token, err := ResolveBotToken(ctx, t.BotToken, logger)
	if err != nil {
		return nil, err
	}

	cfg := notifications.TelegramConfig{
		Token:   token,
		ChatIDs: t.ChatIDs,
		Events:  t.Events,
		APIBase: t.APIBase,
	}
	if t.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(t.TimeoutSeconds) * time.Second
	}

	provider := notifications.NewTelegramProvider(cfg)
	if err := provider.Validate(ctx); err != nil {
		return nil, err
	}
	return provider, nil
}

func (w *WebhookNotificationConfig) buildProvider(ctx context.Context) (notifications.Provider, error) {
	if w.URL == "" {
		return nil, dserrors.ConfigError{
			Field:      "notifications.webhooks.url",
			Message:    "webhook URL is required",
			Suggestion: "Set a https:// URL for every webhook destination",
		}
	}
	parsed, err := url.Parse(w.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, dserrors.ConfigError{
			Field:      "notifications.webhooks.url",
			Value:      w.URL,
			Message:    "webhook URL is not a valid absolute URL",
			Suggestion: "Use a full URL such as https://hooks.example.com/skylink",
		}
	}

	cfg := notifications.WebhookConfig{
		Name:            w.Name,
		URL:             w.URL,
		Method:          w.Method,
		Headers:         w.Headers,
		Events:          w.Events,
		PayloadTemplate: w.PayloadTemplate,
	}
	if w.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(w.TimeoutSeconds) * time.Second
	}

	provider := notifications.NewWebhookProvider(cfg)
	if err := provider.Validate(ctx); err != nil {
		return nil, err
	}
	return provider, nil
}
