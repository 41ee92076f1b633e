package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	dserrors "github.com/skylink-net/skylinkctl/internal/errors"
	"github.com/skylink-net/skylinkctl/internal/logging"
	"github.com/skylink-net/skylinkctl/internal/secure"
)

// DefaultTelegramAPIBase is the Telegram Bot API endpoint.
const DefaultTelegramAPIBase = "https://api.telegram.org"

// defaultPerChatTimeout bounds each delivery attempt so one slow chat
// cannot stall the rotation tick.
const defaultPerChatTimeout = 10 * time.Second

// TelegramConfig holds configuration for Telegram bot notifications.
type TelegramConfig struct {
	// Token is the bot credential, held in protected memory.
	Token *secure.Token

	// ChatIDs are the destination chat identifiers. Each is attempted
	// independently.
	ChatIDs []string

	// Events specifies which rotation events trigger notifications.
	// If empty, all events are sent.
	Events []string

	// APIBase overrides the Bot API endpoint (tests).
	APIBase string

	// Timeout is the per-chat delivery timeout.
	Timeout time.Duration
}

// TelegramProvider sends rotation notifications through the Telegram
// Bot API, one sendMessage call per configured chat.
type TelegramProvider struct {
	config TelegramConfig
	client *http.Client
}

// NewTelegramProvider creates a new Telegram notification provider.
func NewTelegramProvider(config TelegramConfig) *TelegramProvider {
	if config.APIBase == "" {
		config.APIBase = DefaultTelegramAPIBase
	}
	if config.Timeout == 0 {
		config.Timeout = defaultPerChatTimeout
	}
	return &TelegramProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name.
func (p *TelegramProvider) Name() string {
	return "telegram"
}

// SupportsEvent returns true if this provider handles the given event type.
func (p *TelegramProvider) SupportsEvent(eventType EventType) bool {
	if len(p.config.Events) == 0 {
		return true
	}

	eventStr := string(eventType)
	for _, e := range p.config.Events {
		if strings.EqualFold(e, eventStr) {
			return true
		}
	}
	return false
}

// Validate checks if the provider configuration is valid.
func (p *TelegramProvider) Validate(ctx context.Context) error {
	if p.config.Token == nil {
		return fmt.Errorf("bot token is required")
	}
	if len(p.config.ChatIDs) == 0 {
		return fmt.Errorf("at least one chat ID is required")
	}
	return nil
}

// Send delivers the event to every configured chat. Chats are attempted
// independently: a failure for one chat is recorded but does not prevent
// attempts to the remaining chats, and nothing is retried.
func (p *TelegramProvider) Send(ctx context.Context, event RotationEvent) error {
	text := p.buildMessage(event)

	var failures []string
	for _, chatID := range p.config.ChatIDs {
		if err := p.sendToChat(ctx, chatID, text); err != nil {
			failures = append(failures, dserrors.NotifyError{
				Destination: "telegram:" + chatID,
				Err:         err,
			}.Error())
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d chats failed: %s",
			len(failures), len(p.config.ChatIDs), strings.Join(failures, "; "))
	}
	return nil
}

// sendToChat performs one sendMessage call with a bounded timeout.
func (p *TelegramProvider) sendToChat(ctx context.Context, chatID, text string) error {
	chatCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	body, err := json.Marshal(map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return p.config.Token.Reveal(func(secret []byte) error {
		if len(secret) == 0 {
			return fmt.Errorf("bot token unavailable")
		}

		url := fmt.Sprintf("%s/bot%s/sendMessage", p.config.APIBase, string(secret))
		req, err := http.NewRequestWithContext(chatCtx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			// The URL embeds the token; never echo it in errors.
			return fmt.Errorf("failed to create request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			// url.Error embeds the token-bearing request URL.
			return fmt.Errorf("transport error: %s", logging.Redact(err.Error(), []string{string(secret)}))
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if suggestion := dserrors.TelegramSuggestion(resp.StatusCode); suggestion != "" {
				return fmt.Errorf("telegram returned status %d (%s)", resp.StatusCode, suggestion)
			}
			return fmt.Errorf("telegram returned status %d", resp.StatusCode)
		}
		return nil
	})
}

// buildMessage formats the Markdown payload: a headline, the rotation
// timestamp, and the fresh descriptor in a copyable code block.
func (p *TelegramProvider) buildMessage(event RotationEvent) string {
	var b strings.Builder

	switch event.Type {
	case EventTypeDeployed:
		fmt.Fprintf(&b, "🚀 *%s deployed*\n", event.Service)
	case EventTypeRotated:
		fmt.Fprintf(&b, "🔄 *%s credentials rotated*\n", event.Service)
	case EventTypeFailed:
		fmt.Fprintf(&b, "❌ *%s rotation failed*\n", event.Service)
	default:
		fmt.Fprintf(&b, "🔔 *%s*\n", event.Service)
	}

	fmt.Fprintf(&b, "_%s_\n", event.Timestamp.UTC().Format(time.RFC3339))

	if event.Protocol != "" {
		fmt.Fprintf(&b, "Protocol: `%s`\n", event.Protocol)
	}
	if event.Descriptor != "" {
		fmt.Fprintf(&b, "\n```\n%s\n```", event.Descriptor)
	}
	if event.Error != nil {
		fmt.Fprintf(&b, "\nError: `%s`", event.Error.Error())
	}

	return b.String()
}
